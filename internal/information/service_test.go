package information_test

import (
	"context"
	"testing"
	"time"

	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/information"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/resizer"
	"photobooth/internal/testsupport"
)

func newTestService(t *testing.T, intervalSeconds int) (*information.Service, *collection.Service, *bus.Bus) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Information.IntervalSeconds = intervalSeconds
	store := testsupport.MustOpenStore(t, cfg)
	rz := resizer.New(nil, cfg.Mediaprocessing.StillQuality, cfg.Mediaprocessing.VideoBitrateKbps)
	cache := collection.NewCache(cfg, store, rz, logging.NewNop())
	events := bus.New(logging.NewNop())
	media := collection.NewService(cfg, store, cache, events, logging.NewNop())
	testsupport.SeedItem(t, cfg, store, mediaitem.KindImage, "job-1")
	testsupport.SeedItem(t, cfg, store, mediaitem.KindCollage, "job-2")
	return information.NewService(cfg, media, events, logging.NewNop()), media, events
}

func TestEmitOncePublishesCounters(t *testing.T) {
	svc, media, events := newTestService(t, 0)
	if err := media.IncrementUsage(context.Background(), "image"); err != nil {
		t.Fatal(err)
	}
	ch, cancel := events.Subscribe()
	defer cancel()

	if err := svc.EmitOnce(context.Background()); err != nil {
		t.Fatalf("EmitOnce: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Type != bus.EventInformationRecord {
			t.Fatalf("event type = %s", evt.Type)
		}
		payload, ok := evt.Payload.(information.RecordPayload)
		if !ok {
			t.Fatalf("payload type %T", evt.Payload)
		}
		if payload.MediaCount != 2 {
			t.Fatalf("media count = %d, want 2", payload.MediaCount)
		}
		if len(payload.Actions) != 1 || payload.Actions[0].Action != "image" || payload.Actions[0].Count != 1 {
			t.Fatalf("actions = %+v", payload.Actions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no information record published")
	}
}

func TestStartWithoutIntervalIsInert(t *testing.T) {
	svc, _, _ := newTestService(t, 0)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.Stop()
}

func TestIntervalEmission(t *testing.T) {
	svc, _, events := newTestService(t, 1)
	ch, cancel := events.Subscribe()
	defer cancel()

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == bus.EventInformationRecord {
				return
			}
		case <-deadline:
			t.Fatal("no interval record within 3s")
		}
	}
}
