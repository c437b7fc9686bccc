package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MailGateway delivers messages through an HTTP mail relay that accepts a
// JSON {from, to, subject, body} document.
type MailGateway struct {
	baseURL  string
	apiToken string
	from     string
	client   *http.Client
	logger   zerolog.Logger
}

// NewMailGateway constructs the gateway transport.
func NewMailGateway(baseURL, apiToken, from string, timeout time.Duration, logger zerolog.Logger) *MailGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &MailGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		from:     from,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "mail_gateway").Logger(),
	}
}

type mailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send posts one message to the relay.
func (g *MailGateway) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(mailRequest{From: g.from, To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	url := g.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail gateway status %d", resp.StatusCode)
	}

	g.logger.Debug().Str("to", to).Str("subject", subject).Msg("message accepted by gateway")
	return nil
}

var _ Transport = (*MailGateway)(nil)
