package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const notePrefix = "jarvis_note_"

func (r *Registry) noteHandler(w NoteWriter) Handler {
	return func(_ context.Context, text string) Response {
		if w == nil {
			return Fail("Failed to save note", errors.New("notes are not configured"))
		}

		body := text
		if _, after, ok := strings.Cut(text, ":"); ok {
			body = strings.TrimSpace(after)
		}

		name := fmt.Sprintf("%s%s.txt", notePrefix, r.now().Format("20060102-150405"))
		if err := w.Write(name, []byte(body+"\n")); err != nil {
			return Fail("Failed to save note", err)
		}
		return Sayf("Saved note to %s.", name)
	}
}
