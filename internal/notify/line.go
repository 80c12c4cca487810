package notify

import (
	"context"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/go-resty/resty/v2"
)

// DefaultLineURL is the LINE Notify endpoint.
const DefaultLineURL = "https://notify-api.line.me/api/notify"

// LineProvider sends notifications through LINE Notify with a bearer token.
type LineProvider struct {
	url    string
	token  string
	client *resty.Client
}

// NewLine creates a LINE Notify provider. An empty url uses DefaultLineURL.
func NewLine(url, token string) *LineProvider {
	if url == "" {
		url = DefaultLineURL
	}
	return &LineProvider{url: url, token: token, client: newClient()}
}

func (l *LineProvider) Name() string { return "line" }

// Send posts the message as the form field LINE expects. LINE has no title
// field, so the title becomes the first line. The text starts with a newline
// so it renders below the sender name.
func (l *LineProvider) Send(ctx context.Context, n model.Notification) error {
	resp, err := l.client.R().
		SetContext(ctx).
		SetAuthToken(l.token).
		SetFormData(map[string]string{"message": lineMessage(n)}).
		Post(l.url)
	return checkResponse(l.Name(), resp, err)
}

func lineMessage(n model.Notification) string {
	if n.Title == "" {
		return "\n" + n.Message
	}
	return "\n" + n.Title + "\n" + n.Message
}
