// Package dispatch runs the listen, classify, handle, speak cycle.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"jarvis/internal/handler"
	"jarvis/internal/intent"
)

var (
	ErrUnrecognized      = errors.New("unable to recognize speech")
	ErrRecognizerService = errors.New("speech recognition service error")
	ErrDevice            = errors.New("audio device error")
)

const (
	Greeting = "Hello Sir, Jarvis online. How can I assist?"
	Farewell = "Goodbye! Shutting down."
	Apology  = "I couldn't hear that. Please repeat."
	Repeat   = "I didn't catch that. Please repeat."
)

// Listener blocks until one utterance has been transcribed. Errors should
// wrap one of ErrUnrecognized, ErrRecognizerService or ErrDevice.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker plays text and returns once it has been spoken.
type Speaker interface {
	Speak(text string) error
}

type Processor interface {
	Process(ctx context.Context, text string) (intent.Intent, handler.Response)
}

type Loop struct {
	in   Listener
	out  Speaker
	proc Processor
}

func NewLoop(in Listener, out Speaker, proc Processor) *Loop {
	return &Loop{in: in, out: out, proc: proc}
}

// Run greets, then cycles until an exit intent or ctx cancellation. A
// cancelled context ends the loop without the farewell.
func (l *Loop) Run(ctx context.Context) error {
	l.say(Greeting)

	for {
		if ctx.Err() != nil {
			log.Info("Dispatch loop interrupted")
			return nil
		}

		if done := l.cycle(ctx); done {
			return nil
		}
	}
}

// cycle runs one listen/respond round and reports whether the loop should
// stop. A panic anywhere in the round is logged and swallowed.
func (l *Loop) cycle(ctx context.Context) (done bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Unhandled panic in dispatch cycle", "panic", rec)
			done = false
		}
	}()

	text, err := l.in.Listen(ctx)
	if ctx.Err() != nil {
		return true
	}
	if err != nil {
		log.Warn("Listen failed", "kind", classify(err), "err", err)
		l.say(Apology)
		return false
	}

	text = strings.TrimSpace(text)
	log.Info("Heard", "text", text)
	if text == "" {
		l.say(Repeat)
		return false
	}

	in, resp := l.proc.Process(ctx, text)
	if ctx.Err() != nil {
		return true
	}

	if resp.Terminal() {
		l.say(Farewell)
		log.Info("Exit requested")
		return true
	}

	if resp.Kind == handler.KindFailure {
		log.Warn("Handler failed", "intent", in, "err", resp.Err)
	}
	log.Info("Reply", "intent", in, "text", resp.Text)
	l.say(resp.Text)
	return false
}

func (l *Loop) say(text string) {
	if text == "" {
		return
	}
	if err := l.out.Speak(text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrUnrecognized):
		return "unrecognized"
	case errors.Is(err, ErrRecognizerService):
		return "service"
	case errors.Is(err, ErrDevice):
		return "device"
	default:
		return fmt.Sprintf("%T", err)
	}
}
