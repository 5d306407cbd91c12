// Package vad gates fixed-size microphone frames into one spoken phrase.
package vad

import "math"

const (
	MinThreshold    = 0.015
	noiseMultiplier = 2.5
)

// Threshold derives the speech gate from measured ambient RMS.
func Threshold(ambient float64) float64 {
	return math.Max(MinThreshold, ambient*noiseMultiplier)
}

func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

// Gate waits for the first frame above the threshold, however long that
// takes. From that onset it keeps at most maxFrames frames and stops early
// once silenceFrames quiet frames follow each other.
type Gate struct {
	thresh        float64
	maxFrames     int
	silenceFrames int

	speaking bool
	frames   int
	quiet    int
	out      []float32
}

func NewGate(thresh float64, maxFrames, silenceFrames int) *Gate {
	return &Gate{
		thresh:        thresh,
		maxFrames:     max(1, maxFrames),
		silenceFrames: silenceFrames,
	}
}

// Feed copies frame into the phrase and reports whether the phrase is
// complete. Frames before the onset are dropped.
func (g *Gate) Feed(frame []float32) bool {
	loud := RMS(frame) > g.thresh
	if !g.speaking {
		if !loud {
			return false
		}
		g.speaking = true
	}

	g.out = append(g.out, frame...)
	g.frames++
	if loud {
		g.quiet = 0
	} else {
		g.quiet++
	}

	if g.frames >= g.maxFrames {
		return true
	}
	return g.silenceFrames > 0 && g.quiet >= g.silenceFrames
}

func (g *Gate) Speaking() bool { return g.speaking }

// Phrase returns the collected samples, nil before the onset.
func (g *Gate) Phrase() []float32 { return g.out }
