package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"jarvis/internal/api"
)

// MaxAPIReply caps how much of a raw API object is read out.
const MaxAPIReply = 400

func apiHandler(c Caller) Handler {
	return func(ctx context.Context, text string) Response {
		if c == nil {
			return Say(RenderAPIResult(api.Result{"error": api.ErrNotConfigured.Error()}))
		}
		res := c.Call(ctx, text)
		if _, failed := res["error"]; failed {
			return Response{Kind: KindFailure, Text: RenderAPIResult(res), Err: fmt.Errorf("api: %v", res["error"])}
		}
		return Say(RenderAPIResult(res))
	}
}

// RenderAPIResult picks what to say out of an API result: an "error" field,
// then "result", then "summary", else the whole object truncated.
func RenderAPIResult(res api.Result) string {
	if v, ok := res["error"]; ok {
		return fmt.Sprintf("API error: %v", v)
	}
	if v, ok := res["result"]; ok {
		return fmt.Sprintf("API: %v", v)
	}
	if v, ok := res["summary"]; ok {
		return fmt.Sprintf("API: %v", v)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf("API returned: %v", map[string]any(res))
	}
	short := []rune(string(raw))
	if len(short) > MaxAPIReply {
		return fmt.Sprintf("API returned: %s...", string(short[:MaxAPIReply]))
	}
	return fmt.Sprintf("API returned: %s", string(short))
}
