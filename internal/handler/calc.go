package handler

import (
	"context"
	"strings"

	"jarvis/internal/calc"
)

var (
	calcPrefixes = []string{"calculate", "what is", "convert"}

	spokenOps = strings.NewReplacer(
		" multiplied by ", " * ",
		" divided by ", " / ",
		" plus ", " + ",
		" minus ", " - ",
		" times ", " * ",
		" over ", " / ",
		" x ", " * ",
	)
)

func calcHandler(_ context.Context, text string) Response {
	expr := strings.ToLower(text)
	for _, p := range calcPrefixes {
		expr = strings.ReplaceAll(expr, p, "")
	}
	expr = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(expr), "?"))
	expr = strings.TrimSpace(spokenOps.Replace(" " + expr + " "))

	v, err := calc.Eval(expr)
	if err != nil {
		return Fail("Calculation error", err)
	}
	return Sayf("The result is %s", calc.Format(v))
}
