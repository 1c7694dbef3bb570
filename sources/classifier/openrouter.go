package classifier

import (
	"context"
	"fmt"

	"claudir/sources/errs"
	"claudir/sources/tracing"

	openrouter "github.com/revrost/go-openrouter"
	"github.com/shopspring/decimal"
)

// OpenRouterClient is the fallback ClassifierClient, used when config
// selects an OpenRouter-routed model chain instead of the direct
// Anthropic endpoint. Grounded on
// sources/artificial/dialer.go's Model/Models fallback-chain request
// shape and decimal cost accounting.
type OpenRouterClient struct {
	client         *openrouter.Client
	model          string
	fallbackModels []string
	log            *tracing.Logger
}

func NewOpenRouterClient(client *openrouter.Client, model string, fallbackModels []string, log *tracing.Logger) *OpenRouterClient {
	return &OpenRouterClient{client: client, model: model, fallbackModels: fallbackModels, log: log}
}

func (c *OpenRouterClient) Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error) {
	log := c.log.With(tracing.AiKind, "classifier/openrouter", tracing.AiModel, c.model)

	request := openrouter.ChatCompletionRequest{
		Model:  c.model,
		Models: c.fallbackModels,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: fmt.Sprintf(prompt, text)}},
		},
		Usage: &openrouter.IncludeUsage{Include: true},
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		log.E("classifier call failed", tracing.InnerError, err)
		return Ham, "", errs.TransientExternal(fmt.Errorf("openrouter classifier: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Ham, "", errs.Protocol(fmt.Errorf("openrouter classifier: empty choices"))
	}

	cost := decimal.NewFromFloat(resp.Usage.Cost)
	raw := resp.Choices[0].Message.Content.Text
	verdict := parseVerdict(raw)

	log.I("classifier responded", tracing.Verdict, verdict.String(), tracing.AiCost, cost.String(), tracing.AiTokens, resp.Usage.TotalTokens)

	return verdict, raw, nil
}

// Complete implements Completer for the Summarizer.
func (c *OpenRouterClient) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:  c.model,
		Models: c.fallbackModels,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: systemPrompt}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: userText}},
		},
	})
	if err != nil {
		return "", errs.TransientExternal(fmt.Errorf("openrouter completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errs.Protocol(fmt.Errorf("openrouter completion: empty choices"))
	}
	return resp.Choices[0].Message.Content.Text, nil
}
