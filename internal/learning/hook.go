// Package learning reports human corrections of AI-extracted fields to the
// external correction-learning service. Reporting is strictly
// fire-and-forget: it runs on its own goroutine, never blocks a
// verification action, and its failures are logged and swallowed.
package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mkessler/cardvault-api/internal/config"
)

// Correction is one human edit that diverged from the AI's original
// extraction.
type Correction struct {
	Field     string `json:"field"`
	Original  string `json:"original_value"`
	Corrected string `json:"corrected_value"`
	Context   string `json:"context,omitempty"`
}

// Hook receives corrections. The zero implementation is a disabled hook.
type Hook interface {
	// Report submits the corrections asynchronously and returns
	// immediately.
	Report(ctx context.Context, corrections []Correction)
}

// HTTPHook posts corrections to the learning service over HTTP with
// retries.
type HTTPHook struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger
}

var _ Hook = (*HTTPHook)(nil)

// NewHook builds a hook from configuration. An empty URL yields a disabled
// hook that drops every report.
func NewHook(cfg config.LearningConfig, log *slog.Logger) Hook {
	if log == nil {
		log = slog.Default()
	}
	if cfg.URL == "" {
		return NoopHook{}
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	// retryablehttp's own logger is too chatty for a best-effort hook.
	client.Logger = nil

	return &HTTPHook{
		url:    cfg.URL,
		client: client,
		logger: log.With(slog.String("component", "learning_hook")),
	}
}

// Report implements Hook.Report. The POST happens on a detached goroutine
// with its own timeout so a slow learning service cannot hold up the
// verification action that triggered it.
func (h *HTTPHook) Report(ctx context.Context, corrections []Correction) {
	if len(corrections) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		payload, err := json.Marshal(map[string]any{"corrections": corrections})
		if err != nil {
			h.logger.Warn("failed to encode corrections", "error", err)
			return
		}

		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
		if err != nil {
			h.logger.Warn("failed to build learning request", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(req)
		if err != nil {
			h.logger.Warn("learning hook request failed", "error", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 300 {
			h.logger.Warn("learning hook rejected corrections",
				"status", resp.StatusCode)
			return
		}
		h.logger.Debug("corrections reported", "count", len(corrections))
	}()
}

// NoopHook drops every report. Used when the learning service is not
// configured.
type NoopHook struct{}

// Report implements Hook.Report.
func (NoopHook) Report(context.Context, []Correction) {}
