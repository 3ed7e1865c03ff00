// Package captionbus provides in-process pub/sub fan-out of caption
// events, so a StreamTranscriber's results can reach multiple independent
// consumers (a logger, a subtitle writer, a live-caption relay) without
// the transcriber knowing about any of them.
package captionbus

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
)

// EventType identifies the kind of caption event flowing through the bus.
type EventType string

const (
	// EventInterim carries a pkg/transcribe.InterimResult payload.
	EventInterim EventType = "caption.interim"
	// EventFinal carries a pkg/transcribe.TranscriptionResult payload.
	EventFinal EventType = "caption.final"
)

// Envelope is the standard wrapper published to the caption bus.
type Envelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	SourceID  string          `json:"source_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Bus fans out caption envelopes to local in-process subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Envelope
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string]chan Envelope)}
}

// Emit publishes an event, marshaling data into the envelope and fanning
// it out to every subscriber. Delivery to a full subscriber buffer is
// dropped (non-blocking) and logged, rather than stalling the caller.
func (b *Bus) Emit(eventType EventType, sourceID string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	envelope := Envelope{
		ID:        xid.New().String(),
		Type:      eventType,
		SourceID:  sourceID,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- envelope:
		default:
			slog.Warn("captionbus: event dropped, subscriber buffer full",
				slog.String("subscriber", id), slog.String("event_type", string(eventType)))
		}
	}
	return nil
}

// Subscribe creates a local subscription. The caller must call Unsubscribe
// with the same id to release the channel.
func (b *Bus) Subscribe(id string, bufSize int) <-chan Envelope {
	if bufSize <= 0 {
		bufSize = 32
	}
	ch := make(chan Envelope, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}
