package captionbus

import (
	"encoding/json"
	"testing"
	"time"
)

type finalPayload struct {
	Text string `json:"text"`
}

func TestEmitDeliversToSubscriber(t *testing.T) {
	b := New()
	ch := b.Subscribe("sub1", 4)
	defer b.Unsubscribe("sub1")

	if err := b.Emit(EventFinal, "src-1", finalPayload{Text: "hello"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	select {
	case env := <-ch:
		if env.Type != EventFinal {
			t.Errorf("type = %q, want %q", env.Type, EventFinal)
		}
		if env.SourceID != "src-1" {
			t.Errorf("source_id = %q, want %q", env.SourceID, "src-1")
		}
		if env.ID == "" {
			t.Error("expected non-empty envelope ID")
		}
		var p finalPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if p.Text != "hello" {
			t.Errorf("text = %q, want %q", p.Text, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe("sub1", 1)
	b.Unsubscribe("sub1")

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	b := New()
	ch := b.Subscribe("sub1", 1)
	defer b.Unsubscribe("sub1")

	if err := b.Emit(EventInterim, "src-1", finalPayload{Text: "a"}); err != nil {
		t.Fatalf("Emit 1: %v", err)
	}
	// Second emit should be dropped (buffer full), not block.
	done := make(chan struct{})
	go func() {
		_ = b.Emit(EventInterim, "src-1", finalPayload{Text: "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber buffer")
	}

	<-ch // drain the first
}
