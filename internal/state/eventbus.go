package state

import (
	"sync"
)

type EventType int

const (
	EventUnknown EventType = iota
	FragmentReceived
	PayloadDecoded
	ScanFailed
	SessionReset
)

func (e EventType) String() string {
	return [...]string{"EventUnknown", "FragmentReceived", "PayloadDecoded", "ScanFailed", "SessionReset"}[e]
}

// EventBus fans events out to subscriber channels. Publish never blocks: a
// subscriber whose channel cannot take the event is dropped from the bus.
type EventBus struct {
	subscribers map[EventType][]chan interface{}
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]chan interface{}),
	}
}

func (eb *EventBus) Subscribe(eventType EventType, ch chan interface{}) {
	if ch == nil {
		panic("channel == nil")
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
}

func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	eb.mu.RLock()
	subscribers := eb.subscribers[eventType]
	var stalled []chan interface{}
	for _, ch := range subscribers {
		select {
		case ch <- data:
		default:
			stalled = append(stalled, ch)
		}
	}
	eb.mu.RUnlock()

	for _, ch := range stalled {
		eb.Unsubscribe(eventType, ch)
	}
}

func (eb *EventBus) Unsubscribe(eventType EventType, ch chan interface{}) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscribers := eb.subscribers[eventType]
	for i, subscriber := range subscribers {
		if subscriber == ch {
			eb.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)
			break
		}
	}
	if len(eb.subscribers[eventType]) == 0 {
		delete(eb.subscribers, eventType)
	}
}

func (eb *EventBus) SubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[eventType])
}
