package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/services"
)

const (
	keepAliveInterval = 100 * time.Millisecond
	restartBackoff    = time.Second
	streamThrottle    = 500 * time.Millisecond

	// StreamBoundary is the multipart boundary used by GenStream.
	StreamBoundary = "frame"
)

// Supervisor owns the ordered backend list and keeps it alive. Role indices
// select which backend serves stills, video, and multicam requests; they may
// alias the same backend.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	backends []Backend
	stills   int
	video    int
	multicam int

	errorFrame []byte

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewSupervisor builds the backend list from configuration.
func NewSupervisor(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	var backends []Backend
	for _, entry := range cfg.Backends.GroupBackends {
		if !entry.Enabled {
			continue
		}
		switch entry.Type {
		case "virtual":
			backends = append(backends, NewVirtualBackend(entry.Name, filepath.Join(cfg.TmpDir(), entry.Name)))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "acquisition", "new",
				fmt.Sprintf("unsupported backend type %q", entry.Type), nil)
		}
	}
	if len(backends) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "acquisition", "new", "no enabled backends", nil)
	}
	for _, index := range []int{cfg.Backends.IndexBackendStills, cfg.Backends.IndexBackendVideo, cfg.Backends.IndexBackendMulticam} {
		if index < 0 || index >= len(backends) {
			return nil, services.Wrap(services.ErrConfiguration, "acquisition", "new",
				fmt.Sprintf("backend role index %d out of range", index), nil)
		}
	}

	return &Supervisor{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "acquisition"),
		backends:   backends,
		stills:     cfg.Backends.IndexBackendStills,
		video:      cfg.Backends.IndexBackendVideo,
		multicam:   cfg.Backends.IndexBackendMulticam,
		errorFrame: renderErrorFrame(),
	}, nil
}

// Start brings all backends up in declaration order and begins the
// keep-alive loop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	for i, backend := range s.backends {
		if err := backend.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s.backends[j].Stop()
			}
			return services.Wrap(services.ErrBackend, "acquisition", "start", backend.Name(), err)
		}
	}

	s.quit = make(chan struct{})
	s.running = true
	quit := s.quit
	s.wg.Add(1)
	go s.keepAlive(ctx, quit)

	s.logger.Info("backends started", logging.Int("count", len(s.backends)))
	return nil
}

// Stop ends the keep-alive loop and stops backends in reverse startup order.
func (s *Supervisor) Stop() {
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
	for i := len(s.backends) - 1; i >= 0; i-- {
		_ = s.backends[i].Stop()
	}
	s.logger.Info("backends stopped")
}

// MarkAllFaulty flags every backend for restart. The hotplug monitor calls
// this on device remove events.
func (s *Supervisor) MarkAllFaulty() {
	for _, backend := range s.backends {
		backend.MarkFaulty()
	}
}

func (s *Supervisor) keepAlive(ctx context.Context, quit <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-time.After(keepAliveInterval):
		}
		if s.anyDown() {
			s.restartAll(ctx, quit)
		}
	}
}

func (s *Supervisor) anyDown() bool {
	for _, backend := range s.backends {
		if !backend.IsAlive() || backend.IsFaulty() {
			return true
		}
	}
	return false
}

// restartAll stops every backend and brings them back up, waiting between
// attempts until success or shutdown.
func (s *Supervisor) restartAll(ctx context.Context, quit <-chan struct{}) {
	for {
		for i := len(s.backends) - 1; i >= 0; i-- {
			_ = s.backends[i].Stop()
		}
		var failed error
		for _, backend := range s.backends {
			if err := backend.Start(ctx); err != nil {
				failed = err
				logging.WarnWithContext(s.logger, "backend restart failed", "backend_restart_failed",
					logging.String(logging.FieldBackend, backend.Name()),
					logging.Error(err))
				break
			}
		}
		if failed == nil {
			s.logger.Info("backends restarted")
			return
		}
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-time.After(restartBackoff):
		}
	}
}

// CaptureStill acquires one high-quality capture file from the stills
// backend. On failure the backend is restarted and the error re-raised.
func (s *Supervisor) CaptureStill(ctx context.Context) (string, error) {
	backend := s.backends[s.stills]
	path, err := backend.WaitForStillFile(ctx, s.cfg.Backends.RetryCapture)
	if err != nil {
		s.restartBackend(ctx, backend)
		return "", services.Wrap(services.ErrBackend, "acquisition", "capture_still", backend.Name(), err)
	}
	return path, nil
}

// CaptureMulticam acquires one synchronized capture set from the multicam
// backend.
func (s *Supervisor) CaptureMulticam(ctx context.Context) ([]string, error) {
	backend := s.backends[s.multicam]
	paths, err := backend.WaitForMulticamFiles(ctx, s.cfg.Backends.RetryCapture)
	if err != nil {
		s.restartBackend(ctx, backend)
		return nil, services.Wrap(services.ErrBackend, "acquisition", "capture_multicam", backend.Name(), err)
	}
	return paths, nil
}

// StartRecording begins video capture on the video backend and returns the
// recording path.
func (s *Supervisor) StartRecording(ctx context.Context, framerate int) (string, error) {
	backend := s.backends[s.video]
	path, err := backend.StartRecording(ctx, framerate)
	if err != nil {
		return "", services.Wrap(services.ErrBackend, "acquisition", "start_recording", backend.Name(), err)
	}
	return path, nil
}

// StopRecording ends video capture on the video backend.
func (s *Supervisor) StopRecording(ctx context.Context) error {
	backend := s.backends[s.video]
	if err := backend.StopRecording(ctx); err != nil {
		return services.Wrap(services.ErrBackend, "acquisition", "stop_recording", backend.Name(), err)
	}
	return nil
}

// SignalIdle, SignalHQPreview, SignalHQCapture, and SignalVideo forward the
// optimization hints to every backend.
func (s *Supervisor) SignalIdle() {
	for _, backend := range s.backends {
		backend.ConfigureOptimizedForIdle()
	}
}

func (s *Supervisor) SignalHQPreview() {
	for _, backend := range s.backends {
		backend.ConfigureOptimizedForHQPreview()
	}
}

func (s *Supervisor) SignalHQCapture() {
	for _, backend := range s.backends {
		backend.ConfigureOptimizedForHQCapture()
	}
}

func (s *Supervisor) SignalVideo() {
	for _, backend := range s.backends {
		backend.ConfigureOptimizedForVideo()
	}
}

// StillsBackend exposes the stills-role backend. Used by tests.
func (s *Supervisor) StillsBackend() Backend {
	return s.backends[s.stills]
}

// GenStream writes multipart JPEG frames from the stills backend until the
// context ends or the writer fails. On a backend error a pre-rendered
// placeholder frame substitutes, a restart is attempted, and the loop
// throttles to avoid tight error cycles.
func (s *Supervisor) GenStream(ctx context.Context, w io.Writer) error {
	backend := s.backends[s.stills]
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := backend.WaitForLoresImage(ctx, 1)
		if err != nil {
			frame = s.errorFrame
			s.restartBackend(ctx, backend)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(streamThrottle):
			}
		}

		if _, werr := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", StreamBoundary, len(frame)); werr != nil {
			return nil
		}
		if _, werr := w.Write(frame); werr != nil {
			return nil
		}
		if _, werr := io.WriteString(w, "\r\n"); werr != nil {
			return nil
		}
	}
}

func (s *Supervisor) restartBackend(ctx context.Context, backend Backend) {
	_ = backend.Stop()
	if err := backend.Start(ctx); err != nil {
		logging.WarnWithContext(s.logger, "backend restart failed", "backend_restart_failed",
			logging.String(logging.FieldBackend, backend.Name()),
			logging.Error(err))
	}
}

func renderErrorFrame() []byte {
	img := imaging.New(640, 480, color.NRGBA{R: 24, G: 24, B: 24, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(70)); err != nil {
		return nil
	}
	return buf.Bytes()
}
