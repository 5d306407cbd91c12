package chat

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const (
	DefaultModel        = "gpt-4o-mini"
	DefaultSystemPrompt = "You are Jarvis, a helpful assistant."
	defaultTemperature  = 0.7
	defaultMaxTokens    = 500
)

type Options struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int64
}

// Completer answers free-form prompts with one chat completion per call.
// Conversations are not remembered between calls.
type Completer struct {
	client openai.Client
	opt    Options
}

func NewCompleter(client openai.Client, opt Options) *Completer {
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.SystemPrompt == "" {
		opt.SystemPrompt = DefaultSystemPrompt
	}
	if opt.Temperature == 0 {
		opt.Temperature = defaultTemperature
	}
	if opt.MaxTokens <= 0 {
		opt.MaxTokens = defaultMaxTokens
	}
	return &Completer{client: client, opt: opt}
}

func (c *Completer) Params(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.opt.SystemPrompt),
			openai.UserMessage(prompt),
		},
		Model:               openai.ChatModel(c.opt.Model),
		Temperature:         openai.Float(c.opt.Temperature),
		MaxCompletionTokens: openai.Int(c.opt.MaxTokens),
	}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.Params(prompt))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	// empty content is returned as is
	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	log.Debug("Chat reply", "model", resp.Model, "chars", len(content))
	return content, nil
}
