package bus

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func recv(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case p, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
	}
	return nil
}

func TestMemoryPublishReachesAllSubscribers(t *testing.T) {
	b := NewMemory(zap.NewNop())
	defer b.Close()

	a, _ := b.Subscribe("channel:1")
	c, _ := b.Subscribe("channel:1")
	other, _ := b.Subscribe("channel:2")

	if err := b.Publish(context.Background(), "channel:1", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := string(recv(t, a)); got != "hello" {
		t.Errorf("subscriber a got %q", got)
	}
	if got := string(recv(t, c)); got != "hello" {
		t.Errorf("subscriber c got %q", got)
	}
	select {
	case p := <-other.C:
		t.Errorf("unrelated topic received %q", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryLateSubscriberGetsNothing(t *testing.T) {
	b := NewMemory(zap.NewNop())
	defer b.Close()

	if err := b.Publish(context.Background(), "channel:1", []byte("early")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	late, _ := b.Subscribe("channel:1")
	select {
	case p := <-late.C:
		t.Errorf("late subscriber received %q", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryCloseSubscriptionStopsDelivery(t *testing.T) {
	b := NewMemory(zap.NewNop())
	defer b.Close()

	sub, _ := b.Subscribe("channel:1")
	sub.Close()
	sub.Close() // idempotent

	if _, ok := <-sub.C; ok {
		t.Error("channel should be closed after Close")
	}
	if err := b.Publish(context.Background(), "channel:1", []byte("x")); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestMemoryDeliveryOrderPerPublisher(t *testing.T) {
	b := NewMemory(zap.NewNop())
	defer b.Close()

	sub, _ := b.Subscribe("channel:1")
	for _, p := range []string{"a", "b", "c"} {
		if err := b.Publish(context.Background(), "channel:1", []byte(p)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		if got := string(recv(t, sub)); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
