// Package bus provides the in-process event bus connecting the core services
// to frontend consumers (SSE bridges, CLI followers, tests).
package bus

import (
	"log/slog"
	"sync"
	"time"

	"photobooth/internal/logging"
)

// EventType names a published event.
type EventType string

const (
	EventDbInsert             EventType = "DbInsert"
	EventDbUpdate             EventType = "DbUpdate"
	EventDbRemove             EventType = "DbRemove"
	EventProcessStateinfo     EventType = "ProcessStateinfo"
	EventFrontendNotification EventType = "TranslateableFrontendNotification"
	EventInformationRecord    EventType = "InformationRecord"
)

// Event is the envelope delivered to subscribers. Payload shapes are
// JSON-stable structs owned by the publishing service.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// DbChangePayload accompanies DbInsert, DbUpdate, and DbRemove events.
type DbChangePayload struct {
	ItemID string `json:"item_id"`
	Kind   string `json:"kind"`
}

// NotificationPayload accompanies FrontendNotification events. Code is a
// stable identifier the frontend translates; Message is a fallback text.
type NotificationPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

const defaultBuffer = 64

// Bus fans events out to subscribers over buffered channels. Slow consumers
// lose the oldest events rather than blocking publishers.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
	logger *slog.Logger
}

// New constructs a Bus. A nil logger disables drop diagnostics.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: defaultBuffer,
		logger: logging.NewComponentLogger(logger, "bus"),
	}
}

// Subscribe registers a consumer. The returned cancel function must be called
// when the consumer is done; afterwards the channel is closed.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking. When a
// subscriber's buffer is full the oldest buffered event is dropped.
func (b *Bus) Publish(eventType EventType, payload any) {
	evt := Event{Type: eventType, Timestamp: time.Now(), Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
			b.logger.Debug("subscriber buffer full, dropped oldest event",
				logging.String("event_type", string(eventType)))
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
