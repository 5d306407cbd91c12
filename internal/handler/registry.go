// Package handler turns a classified utterance into a spoken response.
package handler

import (
	"context"
	"fmt"
	log "log/slog"
	"time"

	"jarvis/internal/api"
	"jarvis/internal/intent"
)

type Handler func(ctx context.Context, text string) Response

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Caller interface {
	Call(ctx context.Context, text string) api.Result
}

type Processes interface {
	Launch(ctx context.Context, name string) error
	Kill(ctx context.Context, name string) (int, error)
}

type Browser interface {
	Open(ctx context.Context, url string) error
}

type NoteWriter interface {
	Write(name string, body []byte) error
}

type Reminders interface {
	Add(text string) string
}

type Deps struct {
	Chat      Completer
	API       Caller
	Processes Processes
	Browser   Browser
	Notes     NoteWriter
	Reminders Reminders

	// Now defaults to time.Now.
	Now func() time.Time
}

type Registry struct {
	handlers map[intent.Intent]Handler
	now      func() time.Time
}

func NewRegistry(d Deps) *Registry {
	r := &Registry{
		handlers: make(map[intent.Intent]Handler),
		now:      d.Now,
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.register(intent.Exit, func(context.Context, string) Response { return Terminate() })
	r.register(intent.Note, r.noteHandler(d.Notes))
	r.register(intent.CallAPI, apiHandler(d.API))
	r.register(intent.SystemCommand, systemHandler(d.Processes))
	r.register(intent.WebCommand, webHandler(d.Browser))
	r.register(intent.Reminder, reminderHandler(d.Reminders))
	r.register(intent.Calculation, calcHandler)
	r.register(intent.Chat, chatHandler(d.Chat))

	return r
}

// register replaces the handler for in.
func (r *Registry) register(in intent.Intent, h Handler) {
	r.handlers[in] = h
}

// Dispatch runs the handler for in. A missing handler or a panicking one is
// reported as a spoken failure, never propagated.
func (r *Registry) Dispatch(ctx context.Context, in intent.Intent, text string) (resp Response) {
	h, ok := r.handlers[in]
	if !ok {
		h = r.handlers[intent.Chat]
	}
	if h == nil {
		return Fail("No handler", fmt.Errorf("intent %q", in))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Handler panicked", "intent", in, "panic", rec)
			resp = Fail("Something went wrong", fmt.Errorf("%v", rec))
		}
	}()

	return h(ctx, text)
}

// Process classifies text and dispatches it.
func (r *Registry) Process(ctx context.Context, text string) (intent.Intent, Response) {
	in := intent.Classify(text)
	log.Info("Intent detected", "intent", in)
	return in, r.Dispatch(ctx, in, text)
}

func reminderHandler(rem Reminders) Handler {
	return func(_ context.Context, text string) Response {
		if rem == nil {
			return Say("Reminders are not available.")
		}
		return Say(rem.Add(text))
	}
}

func chatHandler(c Completer) Handler {
	return func(ctx context.Context, text string) Response {
		if c == nil {
			return Say("Chat is not configured.")
		}
		reply, err := c.Complete(ctx, text)
		if err != nil {
			return Fail("Chat error", err)
		}
		if reply == "" {
			return Say("I have no answer to that.")
		}
		return Say(reply)
	}
}
