// Package events publishes notifications about created cards.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/atinyakov/cardkeeper/internal/models"
)

// Publisher announces newly created cards.
type Publisher interface {
	CardCreated(ctx context.Context, card *models.Card) error
}

// CardCreated is the payload published for every new card.
type CardCreated struct {
	ID        int64  `json:"id"`
	FirstName string `json:"fname"`
	LastName  string `json:"lname"`
	URL       string `json:"url"`
}

// NewCardCreated builds the event for card. baseURL may be empty, in which
// case URL is the path of the card page.
func NewCardCreated(card *models.Card, baseURL string) CardCreated {
	return CardCreated{
		ID:        card.ID,
		FirstName: card.FirstName,
		LastName:  card.LastName,
		URL:       fmt.Sprintf("%s/card/%d", strings.TrimRight(baseURL, "/"), card.ID),
	}
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes card events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    Conn
	subject string
	baseURL string
}

// NewNATSPublisher returns a publisher sending to subject over conn.
func NewNATSPublisher(conn Conn, subject, baseURL string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject, baseURL: baseURL}
}

// CardCreated publishes the card-created event.
func (p *NATSPublisher) CardCreated(ctx context.Context, card *models.Card) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(NewCardCreated(card, p.baseURL))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// NopPublisher discards events. It is used when no NATS server is configured.
type NopPublisher struct{}

func (NopPublisher) CardCreated(context.Context, *models.Card) error { return nil }

// Connect dials the NATS server at url, authenticating with token when it
// is not empty.
func Connect(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("cardkeeper"),
		nats.MaxReconnects(-1),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return conn, nil
}
