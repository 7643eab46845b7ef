// Package events publishes client-side lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TopicSession = "session_events"
	TopicCart    = "cart_events"
	TopicOrder   = "order_events"
	TopicMenu    = "menu_events"
)

const (
	SessionLogin   = "session_login"
	SessionLogout  = "session_logout"
	SessionExpired = "session_expired"
	CartMerged     = "cart_merged"
	CartCleared    = "cart_cleared"
	OrderPlaced    = "order_placed"
	FoodDeleted    = "food_deleted"
	OrderStatusSet = "order_status_updated"
)

var Topics = []string{TopicSession, TopicCart, TopicOrder, TopicMenu}

type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Username string    `json:"username,omitempty"`
	Time     time.Time `json:"time"`
	Data     any       `json:"data,omitempty"`
}

func New(typ, username string, data any) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     typ,
		Username: username,
		Time:     time.Now().UTC(),
		Data:     data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, string, Event) error { return nil }

func (Noop) Close() error { return nil }
