// Package information aggregates usage statistics and collection counters
// into InformationRecord events for frontend dashboards.
package information

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/logging"
)

// ActionUsage is one usage counter in a RecordPayload.
type ActionUsage struct {
	Action     string     `json:"action"`
	Count      int64      `json:"count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// RecordPayload accompanies InformationRecord events.
type RecordPayload struct {
	MediaCount int64         `json:"media_count"`
	Actions    []ActionUsage `json:"actions"`
}

// Service emits information records one-shot and on a configured interval.
type Service struct {
	cfg    *config.Config
	media  *collection.Service
	events *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	quit    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewService wires the information service.
func NewService(cfg *config.Config, media *collection.Service, events *bus.Bus, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		media:  media,
		events: events,
		logger: logging.NewComponentLogger(logger, "information"),
	}
}

// Start begins interval emission when an interval is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	interval := time.Duration(s.cfg.Information.IntervalSeconds) * time.Second
	if interval <= 0 {
		s.logger.Info("interval emission disabled")
		return nil
	}

	s.quit = make(chan struct{})
	s.running = true
	quit := s.quit
	s.wg.Add(1)
	go s.loop(ctx, quit, interval)

	s.logger.Info("information service started", logging.Duration("interval", interval))
	return nil
}

// Stop ends interval emission.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.quit)
	s.quit = nil
	s.running = false
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) loop(ctx context.Context, quit <-chan struct{}, interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.EmitOnce(ctx); err != nil {
				s.logger.Warn("information emission failed", logging.Error(err))
			}
		}
	}
}

// EmitOnce gathers the current counters and publishes one record.
func (s *Service) EmitOnce(ctx context.Context) error {
	payload, err := s.collect(ctx)
	if err != nil {
		return err
	}
	s.events.Publish(bus.EventInformationRecord, payload)
	return nil
}

func (s *Service) collect(ctx context.Context) (RecordPayload, error) {
	count, err := s.media.Count(ctx)
	if err != nil {
		return RecordPayload{}, err
	}
	stats, err := s.media.UsageStats(ctx)
	if err != nil {
		return RecordPayload{}, err
	}

	payload := RecordPayload{MediaCount: count}
	for _, stat := range stats {
		payload.Actions = append(payload.Actions, ActionUsage{
			Action:     stat.Action,
			Count:      stat.Count,
			LastUsedAt: stat.LastUsedAt,
		})
	}
	return payload, nil
}
