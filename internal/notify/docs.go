package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ainews/internal/classify"
	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/story"
)

const docsAPIBase = "https://api.notion.com/v1"
const docsAPIVersion = "2022-06-28"

// Documents archives each digest story as a page in a document database.
// Failures are per story: a rejected page does not stop the rest.
type Documents struct {
	token      string
	databaseID string
	baseURL    string
	client     *http.Client
}

func NewDocuments(token, databaseID string, client *http.Client) *Documents {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Documents{
		token:      token,
		databaseID: databaseID,
		baseURL:    docsAPIBase,
		client:     client,
	}
}

func (d *Documents) Name() string { return "documents" }

func (d *Documents) Send(ctx context.Context, digest Digest) error {
	if len(digest.Stories) == 0 {
		return nil
	}

	var failed int
	for _, st := range digest.Stories {
		if err := d.createPage(ctx, digest.Date, st); err != nil {
			failed++
			logger.Warn("document page failed", "headline", st.Headline, "error", err)
			continue
		}
		metrics.Global.IncrementPayloadsSent()
	}
	if failed == len(digest.Stories) {
		return fmt.Errorf("all %d document pages failed", failed)
	}
	logger.Info("digest archived to documents", "pages", len(digest.Stories)-failed, "failed", failed)
	return nil
}

func (d *Documents) createPage(ctx context.Context, date time.Time, st story.Story) error {
	headline := st.HeadlineKo
	if headline == "" {
		headline = st.Headline
	}
	category := st.Category
	if !classify.Valid(category) {
		category = string(classify.DefaultCategory)
	}

	properties := map[string]any{
		"제목": map[string]any{
			"title": []any{textBlock(headline)},
		},
		"분류": map[string]any{
			"select": map[string]any{"name": category},
		},
		"수집일": map[string]any{
			"date": map[string]any{"start": date.Format("2006-01-02")},
		},
	}
	if st.Link != "" {
		properties["링크"] = map[string]any{"url": st.Link}
	}

	var children []any
	if st.SummaryKo != "" {
		children = append(children, paragraph(st.SummaryKo))
	}
	for _, b := range st.BulletsKo {
		children = append(children, bullet(b))
	}
	if st.ContentStorageID != "" {
		children = append(children, paragraph("전체 내용 ID: "+st.ContentStorageID))
	}

	payload := map[string]any{
		"parent":     map[string]any{"database_id": d.databaseID},
		"properties": properties,
	}
	if len(children) > 0 {
		payload["children"] = children
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/pages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("Notion-Version", docsAPIVersion)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("documents API error: status %d: %s", resp.StatusCode, string(b))
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

func textBlock(content string) map[string]any {
	return map[string]any{
		"text": map[string]any{"content": content},
	}
}

func paragraph(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []any{map[string]any{
				"type": "text",
				"text": map[string]any{"content": content},
			}},
		},
	}
}

func bullet(content string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "bulleted_list_item",
		"bulleted_list_item": map[string]any{
			"rich_text": []any{map[string]any{
				"type": "text",
				"text": map[string]any{"content": content},
			}},
		},
	}
}
