// Package notify delivers deposit notifications over Pusher Channels.
//
// Each organization gets a private channel named "private-org-<id>".
// Platform webhooks announce confirmed deposits on that channel, and the
// notify tool pushes a test event so users can confirm their client is
// wired up before real money moves.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pusher/pusher-http-go/v5"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
)

// Sender delivers a rendered message to a chat destination. The
// Notifier implements it over Pusher; other chat transports plug in
// their own implementation.
type Sender interface {
	Send(ctx context.Context, chatID, text string) error
}

// channels is the subset of the Pusher client the notifier needs. Tests
// substitute a recording fake.
type channels interface {
	Trigger(channel string, eventName string, data interface{}) error
	Webhook(header http.Header, body []byte) (*pusher.Webhook, error)
	AuthorizePrivateChannel(params []byte) ([]byte, error)
}

// Deposit is the payload published on a deposit event.
type Deposit struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Network  string `json:"network"`
	TxHash   string `json:"txHash,omitempty"`
}

// Config holds notifier dependencies.
type Config struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	Logger  log.Logger
}

// Notifier publishes deposit events to per-organization channels.
type Notifier struct {
	client channels
	logger log.Logger
}

// New creates a Notifier backed by Pusher Channels.
func New(cfg Config) (*Notifier, error) {
	if cfg.AppID == "" || cfg.Key == "" || cfg.Secret == "" || cfg.Cluster == "" {
		return nil, errors.New("notify: incomplete Pusher credentials")
	}
	if cfg.Logger == nil {
		return nil, errors.New("notify: logger is required")
	}
	return &Notifier{
		client: &pusher.Client{
			AppID:   cfg.AppID,
			Key:     cfg.Key,
			Secret:  cfg.Secret,
			Cluster: cfg.Cluster,
		},
		logger: cfg.Logger.With("component", "notify"),
	}, nil
}

// ChannelFor returns the private channel name for an organization.
func ChannelFor(orgID string) string {
	return "private-org-" + orgID
}

// AnnounceDeposit publishes a deposit event to the organization channel.
func (n *Notifier) AnnounceDeposit(orgID string, dep Deposit) error {
	channel := ChannelFor(orgID)
	if err := n.client.Trigger(channel, "deposit", dep); err != nil {
		return fmt.Errorf("notify: publishing deposit to %s: %w", channel, err)
	}
	n.logger.Info("deposit announced",
		"channel", channel,
		"amount", dep.Amount,
		"network", dep.Network)
	return nil
}

// SendTest publishes a marked test deposit so the user can confirm the
// subscription end to end.
func (n *Notifier) SendTest(orgID string) error {
	return n.AnnounceDeposit(orgID, Deposit{
		Amount:   "0.00",
		Currency: "USDC",
		Network:  "test",
	})
}

// Send delivers a text message to a chat destination's private channel.
func (n *Notifier) Send(_ context.Context, chatID, text string) error {
	channel := "private-chat-" + chatID
	if err := n.client.Trigger(channel, "message", map[string]string{"text": text}); err != nil {
		return fmt.Errorf("notify: delivering message to %s: %w", channel, err)
	}
	return nil
}

// ParseWebhook validates the platform webhook signature and decodes the
// event batch. Callers must reject the request when err is non-nil.
func (n *Notifier) ParseWebhook(header http.Header, body []byte) (*pusher.Webhook, error) {
	hook, err := n.client.Webhook(header, body)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid webhook signature: %w", err)
	}
	return hook, nil
}

// AuthorizeChannel signs a private-channel subscription request. params
// is the raw form body a Pusher client sends to its auth endpoint.
func (n *Notifier) AuthorizeChannel(params []byte) ([]byte, error) {
	resp, err := n.client.AuthorizePrivateChannel(params)
	if err != nil {
		return nil, fmt.Errorf("notify: authorizing channel: %w", err)
	}
	return resp, nil
}

// FormatDeposit renders a deposit event as chat-ready prose.
func FormatDeposit(dep Deposit) string {
	currency := dep.Currency
	if currency == "" {
		currency = "USDC"
	}
	msg := fmt.Sprintf("💰 New Deposit Received\n\n%s %s deposited on %s", dep.Amount, currency, dep.Network)
	if dep.TxHash != "" {
		msg += "\nTransaction: " + dep.TxHash
	}
	return msg
}
