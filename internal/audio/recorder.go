package audio

import (
	"context"
	log "log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"jarvis/internal/vad"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms

	trailingSilence = 600 * time.Millisecond
)

type Options struct {
	// Ambient is how long to sample background noise before listening.
	Ambient time.Duration
	// PhraseLimit caps a single phrase, counted from the onset of speech.
	PhraseLimit time.Duration
}

type Recorder struct {
	opt Options
}

func NewRecorder(opt Options) *Recorder {
	if opt.PhraseLimit <= 0 {
		opt.PhraseLimit = 12 * time.Second
	}
	return &Recorder{opt: opt}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record calibrates against ambient noise, then waits for speech with no
// time limit. The phrase limit counts from the first frame above the noise
// floor, and a short run of silence ends the phrase early. Only ctx
// cancellation stops the wait.
func (r *Recorder) Record(ctx context.Context) ([]float32, error) {
	opt := r.opt
	buf := make([]float32, frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	thresh := vad.MinThreshold
	if n := framesFor(opt.Ambient); n > 0 {
		var sum float64
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := stream.Read(); err != nil {
				return nil, err
			}
			sum += vad.RMS(buf)
		}
		thresh = vad.Threshold(sum / float64(n))
	}
	log.Debug("Calibrated", "threshold", thresh)

	gate := vad.NewGate(thresh, framesFor(opt.PhraseLimit), framesFor(trailingSilence))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if gate.Feed(buf) {
			return gate.Phrase(), nil
		}
	}
}

func framesFor(d time.Duration) int {
	return int(d / (time.Second * frameSize / SampleRate))
}
