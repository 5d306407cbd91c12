package handler

import "fmt"

type Kind int

const (
	KindSpeak Kind = iota
	KindFailure
	KindTerminate
)

// Response is what a handler hands back to the dispatch loop. Failures are
// still spoken; they only carry the cause along for logging.
type Response struct {
	Kind Kind
	Text string
	Err  error
}

func Say(text string) Response {
	return Response{Kind: KindSpeak, Text: text}
}

func Sayf(format string, args ...any) Response {
	return Say(fmt.Sprintf(format, args...))
}

// Fail renders err behind a spoken prefix, e.g. "Calculation error: ...".
func Fail(prefix string, err error) Response {
	return Response{
		Kind: KindFailure,
		Text: fmt.Sprintf("%s: %v", prefix, err),
		Err:  err,
	}
}

func Terminate() Response {
	return Response{Kind: KindTerminate}
}

func (r Response) Terminal() bool { return r.Kind == KindTerminate }
