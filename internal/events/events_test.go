package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/cardkeeper/internal/models"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subject = subj
	f.data = data
	return f.err
}

func TestNATSPublisher_CardCreated(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "cards.created", "https://cards.example.com/")

	card := &models.Card{ID: 42, FirstName: "Ada", LastName: "Lovelace", Title: "Engineer"}
	require.NoError(t, p.CardCreated(context.Background(), card))

	assert.Equal(t, "cards.created", conn.subject)
	assert.JSONEq(t, `{"id":42,"fname":"Ada","lname":"Lovelace","url":"https://cards.example.com/card/42"}`, string(conn.data))

	var ev CardCreated
	require.NoError(t, json.Unmarshal(conn.data, &ev))
	assert.Equal(t, int64(42), ev.ID)
}

func TestNATSPublisher_Errors(t *testing.T) {
	card := &models.Card{ID: 1, FirstName: "A", LastName: "B"}

	t.Run("publish failure", func(t *testing.T) {
		boom := errors.New("connection closed")
		p := NewNATSPublisher(&fakeConn{err: boom}, "cards.created", "")
		assert.ErrorIs(t, p.CardCreated(context.Background(), card), boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &fakeConn{}
		p := NewNATSPublisher(conn, "cards.created", "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, p.CardCreated(ctx, card), context.Canceled)
		assert.Nil(t, conn.data)
	})
}

func TestNewCardCreated_RelativeURL(t *testing.T) {
	ev := NewCardCreated(&models.Card{ID: 3}, "")
	assert.Equal(t, "/card/3", ev.URL)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.CardCreated(context.Background(), &models.Card{}))
}
