package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/retry"
)

// webhookMaxLen is the per-message size limit of the chat webhook API.
const webhookMaxLen = 2000

// Webhook posts the digest to a chat webhook, splitting long digests into
// multiple messages.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, d Digest) error {
	chunks := chunkMessage(FormatDigest(d), webhookMaxLen)
	for i, chunk := range chunks {
		if err := w.postChunk(ctx, chunk); err != nil {
			return fmt.Errorf("webhook chunk %d/%d: %w", i+1, len(chunks), err)
		}
		metrics.Global.IncrementPayloadsSent()
	}
	logger.Info("digest sent to webhook", "chunks", len(chunks), "stories", len(d.Stories))
	return nil
}

func (w *Webhook) postChunk(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	return retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: 2 * time.Second}, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return &retry.Permanent{Err: err}
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("error HTTP request: %w", err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("webhook API error: status %d", resp.StatusCode)
		default:
			return &retry.Permanent{Err: fmt.Errorf("webhook API error: status %d", resp.StatusCode)}
		}
	})
}
