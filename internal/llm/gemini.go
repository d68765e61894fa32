package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiCompleter struct {
	client *genai.Client
	model  string
}

func newGemini(ctx context.Context, apiKey, model string) (*geminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiCompleter{client: client, model: model}, nil
}

func (g *geminiCompleter) Name() string { return "gemini" }

func (g *geminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini completion: no response")
	}

	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	if out == "" {
		return "", fmt.Errorf("gemini completion: response had no text parts")
	}
	return out, nil
}

func (g *geminiCompleter) Close() error {
	return g.client.Close()
}
