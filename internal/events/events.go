// Package events publishes coaching analytics to NATS and consumes
// suggestion feedback from the keyboard surface. Publishing is
// fire-and-forget: an unreachable broker is logged and never fails or blocks
// a request, and a nil *Client is a no-op so the service runs without NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectToneClassified       = "unsaid.coach.tone.classified"
	SubjectProfileObserved      = "unsaid.coach.profile.observed"
	SubjectSuggestionsGenerated = "unsaid.coach.suggestions.generated"
	SubjectSuggestionFeedback   = "unsaid.coach.suggestion.feedback"
)

// ToneClassified is emitted after each /tone call.
type ToneClassified struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id,omitempty"`
	Tone       string    `json:"tone"`
	Confidence float64   `json:"confidence"`
	Signals    int       `json:"signals"`
	Fallback   bool      `json:"fallback"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProfileObserved is emitted after each accepted observation.
type ProfileObserved struct {
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	DaysObserved   int       `json:"days_observed"`
	WindowComplete bool      `json:"window_complete"`
	Timestamp      time.Time `json:"timestamp"`
}

// SuggestionsGenerated is emitted after each /suggestions call.
type SuggestionsGenerated struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id,omitempty"`
	Tone        string    `json:"tone"`
	Count       int       `json:"count"`
	Sensitivity string    `json:"sensitivity"`
	Timestamp   time.Time `json:"timestamp"`
}

// SuggestionFeedback is what the keyboard extension reports back when a user
// accepts or dismisses a suggestion chip.
type SuggestionFeedback struct {
	UserID    string    `json:"user_id"`
	Tone      string    `json:"tone"`
	Accepted  bool      `json:"accepted"`
	Timestamp time.Time `json:"timestamp"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc, logger: logger}, nil
}

// Publish marshals and sends an event. Failures are logged, never returned —
// analytics must not affect the request path.
func (c *Client) Publish(subject string, data any) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("marshal event", "subject", subject, "error", err)
		return
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		c.logger.Warn("publish event", "subject", subject, "error", err)
	}
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// SubscribeFeedback wires the suggestion feedback loop.
func (c *Client) SubscribeFeedback() error {
	if c == nil {
		return nil
	}
	return c.Subscribe(SubjectSuggestionFeedback, func(_ string, data []byte) {
		var fb SuggestionFeedback
		if err := json.Unmarshal(data, &fb); err != nil {
			c.logger.Warn("failed to parse suggestion feedback", "error", err)
			return
		}
		c.logger.Info("suggestion feedback",
			"user_id", fb.UserID,
			"tone", fb.Tone,
			"accepted", fb.Accepted,
		)
	})
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
