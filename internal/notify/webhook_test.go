package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookName(t *testing.T) {
	p := NewWebhook("http://localhost/hook", "", nil)
	assert.Equal(t, "webhook", p.Name())
}

func TestWebhookSendJSON(t *testing.T) {
	var gotBody model.Notification
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL+"/hook", "", nil)
	err := p.Send(context.Background(), model.Notification{
		AlertType: "offline",
		Severity:  "critical",
		Title:     AlertTitle,
		Message:   "Computer OFFLINE: LAB-07",
		MachineID: "m-7",
		Hostname:  "LAB-07",
		Timestamp: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Metadata:  map[string]string{"department": "lab"},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "offline", gotBody.AlertType)
	assert.Equal(t, "critical", gotBody.Severity)
	assert.Equal(t, "LAB-07", gotBody.Hostname)
	assert.Equal(t, "m-7", gotBody.MachineID)
	assert.Equal(t, "Computer OFFLINE: LAB-07", gotBody.Message)
	assert.Equal(t, "lab", gotBody.Metadata["department"])
}

func TestWebhookCustomHeaders(t *testing.T) {
	var gotAuth, gotCustom string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Custom")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", map[string]string{
		"Authorization": "Bearer tok123",
		"X-Custom":      "my-value",
	})
	require.NoError(t, p.Send(context.Background(), model.Notification{Severity: "info", Message: "test"}))

	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "my-value", gotCustom)
}

func TestWebhookMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"", http.MethodPost},
		{http.MethodPut, http.MethodPut},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			var gotMethod string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			p := NewWebhook(srv.URL, tt.method, nil)
			require.NoError(t, p.Send(context.Background(), model.Notification{Message: "test"}))
			assert.Equal(t, tt.want, gotMethod)
		})
	}
}

func TestWebhookServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewWebhook(srv.URL, "", nil)
	err := p.Send(context.Background(), model.Notification{Message: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookSendBadURL(t *testing.T) {
	p := NewWebhook("://invalid", "", nil)
	err := p.Send(context.Background(), model.Notification{Message: "bad url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook:")
}
