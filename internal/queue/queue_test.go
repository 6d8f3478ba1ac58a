package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := NewInMemory(8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	want := AbsenceEvent{RecordID: "r1", StudentID: "s1", ClassID: "c1", Similarity: 42.5}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	events, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	select {
	case got := <-events:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-ctx.Done():
		t.Fatal("no event delivered")
	}
}

func TestInMemoryPreservesOrder(t *testing.T) {
	q := NewInMemory(8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Publish(ctx, AbsenceEvent{RecordID: id}); err != nil {
			t.Fatalf("publish %s: %v", id, err)
		}
	}
	events, _ := q.Consume(ctx)
	for _, id := range []string{"a", "b", "c"} {
		select {
		case got := <-events:
			if got.RecordID != id {
				t.Fatalf("got %q, want %q", got.RecordID, id)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %q", id)
		}
	}
}

func TestInMemoryPublishFullQueueRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, AbsenceEvent{RecordID: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Publish(short, AbsenceEvent{RecordID: "b"}); err == nil {
		t.Fatal("publish on a full queue should fail once the context expires")
	}
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	events, _ := q.Consume(ctx)
	cancel()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("received event after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consume channel never closed")
	}
}
