package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Cue plays a short mp3 before jarvis starts listening. The file is decoded
// once; the speaker is initialised on first play at the file's sample rate.
type Cue struct {
	once   sync.Once
	buf    *beep.Buffer
	format beep.Format
	err    error
	path   string
}

func NewCue(path string) *Cue {
	return &Cue{path: path}
}

func (c *Cue) load() {
	f, err := os.Open(c.path)
	if err != nil {
		c.err = fmt.Errorf("open cue: %w", err)
		return
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		c.err = fmt.Errorf("decode cue: %w", err)
		return
	}
	defer streamer.Close()

	c.format = format
	c.buf = beep.NewBuffer(format)
	c.buf.Append(streamer)

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		c.err = fmt.Errorf("init speaker: %w", err)
	}
}

// Play blocks until the cue has finished.
func (c *Cue) Play() error {
	c.once.Do(c.load)
	if c.err != nil {
		return c.err
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(c.buf.Streamer(0, c.buf.Len()), beep.Callback(func() {
		close(done)
	})))
	<-done
	return nil
}
