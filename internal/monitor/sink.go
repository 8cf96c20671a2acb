package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"crowguard/internal/core/ports"
)

// httpSink delivers reports to the verification service's report
// endpoint. One attempt per report, bounded by the client timeout;
// the caller treats failures as dropped telemetry.
type httpSink struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
}

var _ ports.ReportSink = (*httpSink)(nil) // Ensure compliance

// NewHTTPSink creates the report delivery client.
func NewHTTPSink(baseURL string, timeout time.Duration, baseLogger *zerolog.Logger) ports.ReportSink {
	return &httpSink{
		baseURL:   baseURL,
		userAgent: "crowguard-agent/1.0",
		client:    &http.Client{Timeout: timeout},
		log:       baseLogger.With().Str("component", "http_sink").Logger(),
	}
}

type reportPayload struct {
	Type      string         `json:"type"`
	Details   map[string]any `json:"details"`
	Timestamp string         `json:"timestamp"`
}

// Send posts one report.
func (s *httpSink) Send(ctx context.Context, report ports.Report) error {
	payload := reportPayload{
		Type:      string(report.Kind),
		Details:   report.Details,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
	}
	if payload.Details == nil {
		payload.Details = map[string]any{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/security/report", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", report.UserID)
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report rejected: status %d", resp.StatusCode)
	}
	return nil
}
