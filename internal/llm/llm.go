// Package llm wraps the chat completion providers behind a single interface
// so the pipeline can run against OpenAI or Gemini without caring which.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// Request is one completion call. JSONMode asks the provider to constrain
// output to a JSON object where the API supports it; responses still go
// through repair parsing regardless.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Completer executes chat completions against one provider.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Close() error
}

// Retryable reports whether a provider error is worth another attempt.
// Rate limits, server-side errors and network failures are transient;
// any other client-side rejection (bad key, malformed request) is final.
func Retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return transientStatus(gErr.Code)
	}
	return true
}

func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// New builds a Completer for the named provider. An empty model picks the
// provider default.
func New(ctx context.Context, provider, apiKey, model string) (Completer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: no API key for provider %q", provider)
	}
	switch provider {
	case "openai":
		if model == "" {
			model = "gpt-4o-mini"
		}
		return newOpenAI(apiKey, model), nil
	case "gemini":
		if model == "" {
			model = "gemini-1.5-flash"
		}
		return newGemini(ctx, apiKey, model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q (valid: openai, gemini)", provider)
	}
}
