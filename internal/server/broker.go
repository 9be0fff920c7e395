package server

import (
	"encoding/json"
	"sync"
)

const (
	eventAnimalCreated = "animal_created"
	eventAnimalUpdated = "animal_updated"
	eventAnimalDeleted = "animal_deleted"
)

// AnimalEvent is the payload published to feed subscribers.
type AnimalEvent struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Animal *Animal `json:"animal,omitempty"`
}

// Broker fans animal changes out to SSE subscribers in-process.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan []byte]struct{})}
}

// Subscribe returns a channel that receives JSON-encoded events.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) Publish(event AnimalEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
