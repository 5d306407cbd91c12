package intent

import "strings"

type Intent string

const (
	Exit          Intent = "exit"
	Note          Intent = "note"
	CallAPI       Intent = "call_api"
	SystemCommand Intent = "system_command"
	WebCommand    Intent = "web_command"
	Reminder      Intent = "reminder"
	Calculation   Intent = "calculation"
	Chat          Intent = "chat"
)

type rule struct {
	intent   Intent
	keywords []string
}

// Evaluated top to bottom, first hit wins. Utterances routinely match more
// than one rule ("remind me to search wiki" is a web command), so the order
// is part of the routing contract.
var rules = []rule{
	{Exit, []string{"exit", "quit", "stop", "bye", "goodbye"}},
	{Note, []string{"note:", "take note", "remember"}},
	{CallAPI, []string{"get info", "status", "fetch", "call api", "my api"}},
	{SystemCommand, []string{"open ", "launch ", "run ", "start ", "close "}},
	{WebCommand, []string{"search ", "google ", "wiki ", "wikipedia "}},
	{Reminder, []string{"remind me", "set reminder"}},
	{Calculation, []string{"calculate ", "what is ", "convert "}},
}

// Classify maps an utterance to exactly one intent. Unmatched text is Chat.
func Classify(text string) Intent {
	t := strings.ToLower(text)
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(t, k) {
				return r.intent
			}
		}
	}
	return Chat
}

func All() []Intent {
	out := make([]Intent, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.intent)
	}
	return append(out, Chat)
}
