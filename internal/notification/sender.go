package notification

import (
	"context"
	"fmt"
	"log/slog"
)

// Email providers.
const (
	ProviderConsole = "console"
	ProviderResend  = "resend"
)

// Message is a rendered email ready to hand to a provider.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers rendered emails through one provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// ConsoleSender logs emails instead of sending them. It is the development
// default.
type ConsoleSender struct {
	logger *slog.Logger
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger}
}

func (s *ConsoleSender) Name() string { return ProviderConsole }

func (s *ConsoleSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "email",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
	)

	body := msg.HTML
	if len(body) > 500 {
		body = body[:500]
	}
	s.logger.DebugContext(ctx, "email content", slog.String("html", body))
	return nil
}

// SenderConfig selects and configures the email provider.
type SenderConfig struct {
	Provider string
	APIKey   string
	APIURL   string
	From     string
}

// NewSender builds the sender named by cfg.Provider.
func NewSender(cfg SenderConfig, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case ProviderConsole, "":
		return NewConsoleSender(logger), nil
	case ProviderResend:
		return NewResendSender(cfg.APIURL, cfg.APIKey, cfg.From, nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
