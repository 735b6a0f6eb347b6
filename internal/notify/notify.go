// Package notify is the notification collaborator. Delivery is strictly
// fire-and-forget: a Notifier must never block a caller or surface an error
// into a ledger transaction.
package notify

import (
	"log"

	"github.com/surveypesa/backend/internal/domain"
)

// Notifier consumes ledger events.
type Notifier interface {
	Notify(event domain.Event)
}

// LogNotifier writes events to the process log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(event domain.Event) {
	log.Printf("event %s user=%s payload=%v", event.Kind, event.UserID, event.Payload)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(event domain.Event) {
	for _, n := range m {
		n.Notify(event)
	}
}
