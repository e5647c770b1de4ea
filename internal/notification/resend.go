package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FeliksML/web-cellar-sub000/pkg/httpclient"
)

// ResendSender delivers email through the Resend HTTP API.
type ResendSender struct {
	client httpclient.Doer
	apiURL string
	apiKey string
	from   string
	logger *slog.Logger
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendSender creates a Resend sender. A nil client gets a retrying
// client behind a circuit breaker.
func NewResendSender(apiURL, apiKey, from string, client httpclient.Doer, logger *slog.Logger) *ResendSender {
	if client == nil {
		client = httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("resend"),
			logger,
		)
	}
	return &ResendSender{
		client: client,
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		from:   from,
		logger: logger,
	}
}

func (s *ResendSender) Name() string { return ProviderResend }

func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(resendRequest{
		From:    s.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("send email via resend: %w", err)
	}
	if resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "resend")
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	s.logger.DebugContext(ctx, "email sent via resend",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
