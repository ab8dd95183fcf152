package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"course-dedupe/internal/export"
	"course-dedupe/internal/httpx"
)

// WebhookSink POSTs JSON documents to URL. Other content types are wrapped
// in an envelope so the receiver always gets JSON.
type WebhookSink struct {
	URL   string
	Token string
	Retry httpx.RetryConfig

	client *http.Client
}

func NewWebhookSink(url, token string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebhookSink{URL: url, Token: token, Retry: httpx.DefaultRetryConfig(), client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

type envelope struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

func (s *WebhookSink) Publish(ctx context.Context, doc export.Document) error {
	payload := doc.Data
	if doc.ContentType != "application/json" {
		b, err := json.Marshal(envelope{Name: doc.Name, ContentType: doc.ContentType, Content: string(doc.Data)})
		if err != nil {
			return fmt.Errorf("webhook sink: encode %s: %w", doc.Name, err)
		}
		payload = b
	}

	headers := map[string]string{"X-Report-Name": doc.Name}
	if s.Token != "" {
		headers["Authorization"] = "Bearer " + s.Token
	}
	if _, err := httpx.PostJSON(ctx, s.client, s.URL, headers, payload, s.Retry); err != nil {
		return fmt.Errorf("webhook sink: %w", err)
	}
	return nil
}
