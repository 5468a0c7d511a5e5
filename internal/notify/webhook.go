// Package notify delivers match notifications to a chat webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/webhook"
	"github.com/sony/gobreaker"
	"github.com/tagscout/tagscout/internal/scan"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	// ErrWebhookNotConfigured indicates that no webhook URL was set.
	ErrWebhookNotConfigured = errors.New("webhook URL is not configured")
	// ErrBreakerOpen indicates that deliveries are paused by the circuit breaker.
	ErrBreakerOpen = errors.New("webhook circuit breaker open")
)

// Sender posts one webhook message.
type Sender interface {
	CreateMessage(messageCreate discord.WebhookMessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// Options configures a Webhook notifier.
type Options struct {
	Timeout            time.Duration
	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
}

// Webhook implements scan.Notifier by posting one embed message per match.
type Webhook struct {
	sender    Sender
	closer    func()
	formatter *Formatter
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	logger    *zap.Logger
}

var _ scan.Notifier = (*Webhook)(nil)

// NewWebhook creates a notifier posting to webhookURL.
func NewWebhook(webhookURL string, options Options, logger *zap.Logger) (*Webhook, error) {
	if webhookURL == "" {
		return nil, ErrWebhookNotConfigured
	}

	client, err := webhook.NewWithURL(webhookURL,
		webhook.WithRestClientConfigOpts(rest.WithHTTPClient(&http.Client{Timeout: options.Timeout})))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}

	w := New(client, options, logger)
	w.closer = func() { client.Close(context.Background()) }

	return w, nil
}

// New creates a notifier over an existing sender.
func New(sender Sender, options Options, logger *zap.Logger) *Webhook {
	notifyLogger := logger.Named("notify")

	if options.Timeout <= 0 {
		options.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook",
		MaxRequests: options.BreakerMaxRequests,
		Interval:    options.BreakerInterval,
		Timeout:     options.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			notifyLogger.Warn("Webhook circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Webhook{
		sender:    sender,
		formatter: NewFormatter(language.English),
		breaker:   breaker,
		timeout:   options.Timeout,
		logger:    notifyLogger,
	}
}

// Notify posts the match notification. Each call makes one request.
func (w *Webhook) Notify(ctx context.Context, match *scan.Match) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	msg := w.formatter.Message(match)

	_, err := w.breaker.Execute(func() (any, error) {
		return w.sender.CreateMessage(msg, rest.WithCtx(ctx))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %w", ErrBreakerOpen, err)
		}

		return fmt.Errorf("failed to send webhook message: %w", err)
	}

	w.logger.Debug("Webhook sent",
		zap.String("gamertag", match.Result.Gamertag),
		zap.Uint64("memberID", uint64(match.Snapshot.ID)))

	return nil
}

// Close releases the underlying webhook client.
func (w *Webhook) Close() {
	if w.closer != nil {
		w.closer()
	}
}
