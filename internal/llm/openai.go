package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openaiCompleter struct {
	client *openai.Client
	model  string
}

func newOpenAI(apiKey, model string) *openaiCompleter {
	return &openaiCompleter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (o *openaiCompleter) Name() string { return "openai" }

func (o *openaiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	ccr := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		ccr.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openaiCompleter) Close() error { return nil }
