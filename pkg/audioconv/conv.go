// Package audioconv decodes wav, mp3 and ogg audio into mono 16 kHz float32
// PCM, the input format whisper expects.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const TargetRate = 16000

var (
	ErrUnsupported = errors.New("unsupported audio format")
	ErrEmpty       = errors.New("empty audio")
)

type Options struct {
	MaxSamples int
}

// Decode sniffs the container from its magic bytes and converts it.
func Decode(data []byte, opt Options) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrEmpty
	}

	var (
		pcm []float32
		err error
	)
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		pcm, err = decodeWAV(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte("OggS")):
		pcm, err = decodeOggVorbis(bytes.NewReader(data))
		if err != nil {
			var e2 error
			if pcm, e2 = decodeOggOpus(bytes.NewReader(data)); e2 != nil {
				return nil, fmt.Errorf("cannot decode Ogg container: vorbis: %v, opus: %w", err, e2)
			}
			err = nil
		}
	case bytes.HasPrefix(data, []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0):
		pcm, err = decodeMP3(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: magic % x", ErrUnsupported, data[:4])
	}
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrEmpty
	}

	if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
		pcm = pcm[:opt.MaxSamples]
	}
	return pcm, nil
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, ErrEmpty
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return Normalize(IntToFloat32(pb.Data, bd), ch, sr), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("read mp3: %w", err)
	}
	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(ints)*2]), binary.LittleEndian, ints); err != nil {
		return nil, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always emits interleaved stereo
	return Normalize(Int16ToFloat32(ints), 2, sr), nil
}

func decodeOggVorbis(r io.Reader) ([]float32, error) {
	pcm, f, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if f == nil || f.Channels <= 0 || f.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return Normalize(pcm, f.Channels, f.SampleRate), nil
}

// Normalize downmixes interleaved samples to mono and resamples to 16 kHz.
func Normalize(x []float32, channels, rate int) []float32 {
	return ResampleLinear(Downmix(x, channels), rate, TargetRate)
}

func IntToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(math.Max(-1, math.Min(1, float64(v)*scale)))
	}
	return out
}

func Int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func Downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	n := len(in) / channels
	out := make([]float32, n)
	for i := range n {
		var sum float64
		for c := range channels {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func ResampleLinear(in []float32, inRate, outRate int) []float32 {
	if inRate == outRate || len(in) == 0 {
		return in
	}
	ratio := float64(outRate) / float64(inRate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := range n {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}
