package handler

import (
	"context"
	"errors"
	"strings"
)

var (
	launchVerbs = map[string]bool{"open": true, "launch": true, "start": true, "run": true}
	killVerbs   = map[string]bool{"close": true, "quit": true}
	fillerWords = map[string]bool{"the": true, "please": true}
)

// parseSystemCommand finds the first launch or kill verb and returns the
// words that follow it, minus filler, as the program name.
func parseSystemCommand(text string) (verb, app string) {
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		if !launchVerbs[w] && !killVerbs[w] {
			continue
		}
		verb = w
		var rest []string
		for _, r := range words[i+1:] {
			if !fillerWords[r] {
				rest = append(rest, r)
			}
		}
		return verb, strings.Join(rest, " ")
	}
	return "", ""
}

func systemHandler(p Processes) Handler {
	return func(ctx context.Context, text string) Response {
		verb, app := parseSystemCommand(text)
		if verb == "" {
			return Say("Command not recognized.")
		}
		if p == nil {
			return Fail("System command error", errors.New("process control is not available"))
		}

		if launchVerbs[verb] {
			if app == "" {
				return Say("Which program should I open?")
			}
			if err := p.Launch(ctx, app); err != nil {
				return Fail("System command error", err)
			}
			return Sayf("Opened %s", app)
		}

		if app == "" {
			return Say("Which program should I close?")
		}
		if _, err := p.Kill(ctx, app); err != nil {
			return Fail("System command error", err)
		}
		return Sayf("Closed %s", app)
	}
}
