// Package voice turns microphone audio into utterances for the dispatch
// loop.
package voice

import (
	"context"
	"fmt"
	log "log/slog"

	"jarvis/internal/dispatch"
)

type Recorder interface {
	// Record blocks until one phrase of mono 16 kHz PCM has been heard.
	// An empty result is treated as unrecognized speech.
	Record(ctx context.Context) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type Cue interface {
	Play() error
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Microphone struct {
	rec  Recorder
	tr   Transcriber
	cue  Cue
	duck Ducker
}

type Option func(*Microphone)

func WithCue(c Cue) Option       { return func(m *Microphone) { m.cue = c } }
func WithDucker(d Ducker) Option { return func(m *Microphone) { m.duck = d } }

func NewMicrophone(rec Recorder, tr Transcriber, opts ...Option) *Microphone {
	m := &Microphone{rec: rec, tr: tr}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Listen records one phrase and transcribes it.
func (m *Microphone) Listen(ctx context.Context) (string, error) {
	if m.cue != nil {
		if err := m.cue.Play(); err != nil {
			log.Debug("Cue failed", "err", err)
		}
	}

	pcm, err := m.record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", dispatch.ErrDevice, err)
	}
	if len(pcm) == 0 {
		return "", fmt.Errorf("%w: no speech detected", dispatch.ErrUnrecognized)
	}
	log.Debug("Recorded", "samples", len(pcm))

	return Transcribe(ctx, m.tr, pcm)
}

func (m *Microphone) record(ctx context.Context) ([]float32, error) {
	if m.duck != nil {
		if err := m.duck.Duck(ctx); err != nil {
			log.Debug("Ducking failed", "err", err)
		}
		defer func() {
			if err := m.duck.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Debug("Restoring volume failed", "err", err)
			}
		}()
	}

	log.Info("Listening...")
	return m.rec.Record(ctx)
}

// Transcribe runs tr and maps its failures onto the dispatch error classes.
// A transcript made only of annotations counts as unrecognized.
func Transcribe(ctx context.Context, tr Transcriber, pcm []float32) (string, error) {
	raw, err := tr.Transcribe(ctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", dispatch.ErrRecognizerService, err)
	}
	text := Clean(raw)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", dispatch.ErrUnrecognized)
	}
	return text, nil
}
