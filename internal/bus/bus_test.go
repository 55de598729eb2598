package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New(nil)
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish(EventDbInsert, DbChangePayload{ItemID: "a", Kind: "image"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Type != EventDbInsert {
				t.Fatalf("event type = %q", evt.Type)
			}
			payload, ok := evt.Payload.(DbChangePayload)
			if !ok || payload.ItemID != "a" {
				t.Fatalf("payload = %#v", evt.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	b := New(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < defaultBuffer+10; i++ {
		b.Publish(EventProcessStateinfo, i)
	}

	// The first events should have been discarded; the newest must survive.
	var last Event
	drained := 0
	for {
		select {
		case evt := <-ch:
			last = evt
			drained++
			continue
		default:
		}
		break
	}
	if drained != defaultBuffer {
		t.Fatalf("drained %d events, want %d", drained, defaultBuffer)
	}
	if got := last.Payload.(int); got != defaultBuffer+9 {
		t.Fatalf("newest event payload = %d, want %d", got, defaultBuffer+9)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := New(nil)
	ch, cancel := b.Subscribe()
	cancel()
	// Cancel twice must be safe.
	cancel()

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after cancel")
	}
	if b.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d", b.SubscriberCount())
	}

	// Publishing with no subscribers must not panic.
	b.Publish(EventDbRemove, nil)
}

func TestLogHandlerRepublishesRecords(t *testing.T) {
	b := New(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	logger := slog.New(NewLogHandler(slog.NewTextHandler(io.Discard, nil), b))
	logger = logger.With("component", "acquisition")
	logger.Info("backend started", "backend", "virtual")

	select {
	case evt := <-ch:
		if evt.Type != EventLogRecord {
			t.Fatalf("event type = %q", evt.Type)
		}
		payload, ok := evt.Payload.(LogRecordPayload)
		if !ok {
			t.Fatalf("payload = %#v", evt.Payload)
		}
		if payload.Component != "acquisition" || payload.Level != "info" {
			t.Fatalf("payload = %#v", payload)
		}
		if payload.Message != "backend started" || payload.Fields["backend"] != "virtual" {
			t.Fatalf("payload = %#v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log record event")
	}
}

func TestLogHandlerSkipsDebugRecords(t *testing.T) {
	b := New(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewLogHandler(handler, b))
	logger.Debug("noisy detail")

	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %#v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}
