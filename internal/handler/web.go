package handler

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const (
	googleSearchURL = "https://www.google.com/search?q="
	wikipediaURL    = "https://en.wikipedia.org/wiki/"
)

type searchEngine int

const (
	engineNone searchEngine = iota
	engineGoogle
	engineWikipedia
)

// parseWebCommand mirrors the classifier's keywords: google/search win over
// wiki/wikipedia when both appear.
func parseWebCommand(text string) (searchEngine, string) {
	words := strings.Fields(strings.ToLower(text))

	engine := engineNone
	for _, w := range words {
		if w == "google" || w == "search" {
			engine = engineGoogle
			break
		}
	}
	if engine == engineNone {
		for _, w := range words {
			if w == "wiki" || w == "wikipedia" {
				engine = engineWikipedia
				break
			}
		}
	}
	if engine == engineNone {
		return engineNone, ""
	}

	var rest []string
	for _, w := range words {
		switch w {
		case "google", "search", "wiki", "wikipedia":
			continue
		}
		rest = append(rest, w)
	}
	if len(rest) > 0 && rest[0] == "for" {
		rest = rest[1:]
	}
	return engine, strings.Join(rest, " ")
}

func searchURL(engine searchEngine, query string) string {
	if engine == engineWikipedia {
		return wikipediaURL + url.PathEscape(strings.ReplaceAll(query, " ", "_"))
	}
	return googleSearchURL + url.QueryEscape(query)
}

func webHandler(b Browser) Handler {
	return func(ctx context.Context, text string) Response {
		engine, query := parseWebCommand(text)
		if engine == engineNone {
			return Say("Web command not recognized.")
		}
		if query == "" {
			return Say("What should I search for?")
		}
		if b == nil {
			return Fail("Web command error", errors.New("no browser available"))
		}

		if err := b.Open(ctx, searchURL(engine, query)); err != nil {
			return Fail("Web command error", err)
		}
		if engine == engineWikipedia {
			return Sayf("Searching Wikipedia for '%s'", query)
		}
		return Sayf("Searching Google for '%s'", query)
	}
}
