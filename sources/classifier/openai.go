package classifier

import (
	"context"
	"fmt"
	"net/http"

	"claudir/sources/errs"
	"claudir/sources/tracing"

	"github.com/sashabaranov/go-openai"
)

// anthropicOpenAICompatBaseURL is the OpenAI-compatible chat-completion
// endpoint spec.md §6 describes: classifier auth travels through
// anthropic_api_key, not an OpenAI token.
const anthropicOpenAICompatBaseURL = "https://api.anthropic.com/v1/"

// OpenAIClient is the primary ClassifierClient, grounded on
// sources/artificial/openai.go's NewOpenAIClient (custom http.Client
// plugged into openai.DefaultConfig) and
// sources/artificial/analyzer.go's one-shot-prompt-then-parse shape.
type OpenAIClient struct {
	client *openai.Client
	model  string
	log    *tracing.Logger
}

// NewOpenAIClient builds the primary classifier client against the
// Anthropic OpenAI-compatible endpoint, authenticated with
// anthropic_api_key.
func NewOpenAIClient(httpClient *http.Client, apiKey, model string, log *tracing.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = anthropicOpenAICompatBaseURL
	cfg.HTTPClient = httpClient

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		log:    log,
	}
}

func (c *OpenAIClient) Classify(ctx context.Context, text string, hints Hints) (Verdict, string, error) {
	log := c.log.With(tracing.AiKind, "classifier/openai", tracing.AiModel, c.model)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(prompt, text)},
		},
		MaxTokens: 10,
	})
	if err != nil {
		log.E("classifier call failed", tracing.InnerError, err)
		return Ham, "", errs.TransientExternal(fmt.Errorf("openai classifier: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Ham, "", errs.Protocol(fmt.Errorf("openai classifier: empty choices"))
	}

	raw := resp.Choices[0].Message.Content
	verdict := parseVerdict(raw)

	log.I("classifier responded", tracing.Verdict, verdict.String(), tracing.AiTokens, resp.Usage.TotalTokens)

	return verdict, raw, nil
}

// Complete implements Completer for the Summarizer.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", errs.TransientExternal(fmt.Errorf("openai completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", errs.Protocol(fmt.Errorf("openai completion: empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
