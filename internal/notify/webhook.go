package notify

import (
	"context"
	"net/http"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/go-resty/resty/v2"
)

// WebhookProvider sends notifications as JSON to an HTTP endpoint.
type WebhookProvider struct {
	url    string
	method string
	client *resty.Client
}

// NewWebhook creates a new webhook notification provider. Headers are sent
// with every request.
func NewWebhook(url, method string, headers map[string]string) *WebhookProvider {
	if method == "" {
		method = http.MethodPost
	}
	return &WebhookProvider{
		url:    url,
		method: method,
		client: newClient().SetHeaders(headers),
	}
}

func (w *WebhookProvider) Name() string { return "webhook" }

func (w *WebhookProvider) Send(ctx context.Context, n model.Notification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(n).
		Execute(w.method, w.url)
	return checkResponse(w.Name(), resp, err)
}
