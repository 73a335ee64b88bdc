// Package notify pushes trade and error events to Telegram. Delivery is best
// effort: a failed notification is logged and never blocks the trading loop.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives human-readable bot events.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Nop discards every notification. Used when no credentials are configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram delivers notifications through the bot sendMessage API.
type Telegram struct {
	log     zerolog.Logger
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

// Option adjusts a Telegram notifier.
type Option func(*Telegram)

// WithBaseURL points the notifier at a different API host. Tests use this.
func WithBaseURL(url string) Option {
	return func(t *Telegram) { t.baseURL = url }
}

// NewTelegram builds a notifier for the given bot credentials.
func NewTelegram(log zerolog.Logger, token, chatID string, opts ...Option) *Telegram {
	t := &Telegram{
		log:     log,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultTelegramBaseURL,
		token:   token,
		chatID:  chatID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// New returns a Telegram notifier when credentials are present, otherwise Nop.
func New(log zerolog.Logger, token, chatID string) Notifier {
	if token == "" || chatID == "" {
		log.Info().Msg("telegram credentials missing, notifications disabled")
		return Nop{}
	}
	return NewTelegram(log, token, chatID)
}

// Notify posts the message. Errors are logged, not returned.
func (t *Telegram) Notify(ctx context.Context, text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    text,
	})
	if err != nil {
		t.log.Warn().Err(err).Msg("telegram payload marshal failed")
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.log.Warn().Err(err).Msg("telegram request build failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.log.Warn().Int("status", resp.StatusCode).Msg("telegram send rejected")
	}
}
