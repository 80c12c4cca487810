package notify

import (
	"context"
	"strings"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/go-resty/resty/v2"
)

// NtfyProvider publishes notifications to an ntfy topic.
type NtfyProvider struct {
	endpoint string
	client   *resty.Client
}

// NewNtfy creates a new ntfy notification provider.
func NewNtfy(url, topic string) *NtfyProvider {
	return &NtfyProvider{
		endpoint: strings.TrimRight(url, "/") + "/" + topic,
		client:   newClient(),
	}
}

func (n *NtfyProvider) Name() string { return "ntfy" }

func (n *NtfyProvider) Send(ctx context.Context, notif model.Notification) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Title", notif.Title).
		SetHeader("Priority", ntfyPriority(notif.Severity)).
		SetHeader("Tags", ntfyTags(notif)).
		SetBody(notif.Message).
		Post(n.endpoint)
	return checkResponse(n.Name(), resp, err)
}

func ntfyPriority(severity string) string {
	switch severity {
	case "critical":
		return "5"
	case "info":
		return "2"
	default:
		return "3"
	}
}

func ntfyTags(n model.Notification) string {
	var tags []string
	switch n.Severity {
	case "critical":
		tags = append(tags, "rotating_light")
	case "warning":
		tags = append(tags, "warning")
	case "info":
		tags = append(tags, "information_source")
	}
	if n.AlertType != "" {
		tags = append(tags, n.AlertType)
	}
	if n.Hostname != "" {
		tags = append(tags, n.Hostname)
	}
	if n.Resolved {
		tags = append(tags, "white_check_mark")
	}
	return strings.Join(tags, ",")
}
