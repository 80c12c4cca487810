// Package notify delivers outbound alert notifications and throttles them
// per (alert type, machine).
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/go-resty/resty/v2"
)

// Provider sends notifications through a specific channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}

const sendTimeout = 10 * time.Second

func newClient() *resty.Client {
	return resty.New().
		SetTimeout(sendTimeout).
		SetHeader("User-Agent", "fleetglint")
}

// checkResponse turns a transport error or non-2xx status into an error
// prefixed with the provider name.
func checkResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: send: %w", provider, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s: unexpected status %d", provider, resp.StatusCode())
	}
	return nil
}
