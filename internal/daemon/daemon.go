package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"photobooth/internal/acquisition"
	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/information"
	"photobooth/internal/logging"
	"photobooth/internal/mediaproc"
	"photobooth/internal/processing"
	"photobooth/internal/resizer"
	"photobooth/internal/services/ffmpeg"
	"photobooth/internal/share"
)

// Daemon owns the core services and their lifecycle.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	events *bus.Bus

	media   *collection.Service
	camera  *acquisition.Supervisor
	info    *information.Service
	proc    *processing.Service
	shares  *share.Service
	hotplug *acquisition.HotplugMonitor
	video   *ffmpeg.Client

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
	MediaCount   int64
	JobActive    bool
	JobID        string
	JobState     string
}

// New constructs a daemon with all services wired but not started.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	events := bus.New(logger)
	// Service logs are republished as LogRecord events for frontends.
	logger = slog.New(bus.NewLogHandler(logger.Handler(), events))

	video, err := ffmpeg.New(cfg.FFmpegBinary(), ffmpeg.WithLogDir(cfg.Paths.LogDir))
	if err != nil {
		return nil, fmt.Errorf("ffmpeg client: %w", err)
	}

	store, err := collection.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open collection store: %w", err)
	}

	rz := resizer.New(video, cfg.Mediaprocessing.StillQuality, cfg.Mediaprocessing.VideoBitrateKbps)
	cache := collection.NewCache(cfg, store, rz, logger)
	media := collection.NewService(cfg, store, cache, events, logger)

	camera, err := acquisition.NewSupervisor(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("acquisition supervisor: %w", err)
	}

	proc := processing.NewService(cfg, camera, media,
		mediaproc.NewProcessor(cfg, video, logger), events, logger)
	info := information.NewService(cfg, media, events, logger)
	shares := share.NewService(cfg, media, events, logger)
	hotplug := acquisition.NewHotplugMonitor(logger, func(string) {
		camera.MarkAllFaulty()
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "photoboothd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		events:   events,
		media:    media,
		camera:   camera,
		info:     info,
		proc:     proc,
		shares:   shares,
		hotplug:  hotplug,
		video:    video,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings the services up in declaration
// order: collection, acquisition, information, processing, hotplug.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photobooth daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if version, err := d.video.Version(runCtx); err != nil {
		d.logger.Warn("ffmpeg unavailable, video features degraded", logging.Error(err))
	} else {
		d.logger.Info("ffmpeg ready", logging.String("version", version))
	}

	if err := d.media.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		return fmt.Errorf("start collection: %w", err)
	}
	if err := d.camera.Start(runCtx); err != nil {
		_ = d.media.Stop(context.Background())
		d.releaseLock()
		cancel()
		return fmt.Errorf("start acquisition: %w", err)
	}
	if err := d.info.Start(runCtx); err != nil {
		d.camera.Stop()
		_ = d.media.Stop(context.Background())
		d.releaseLock()
		cancel()
		return fmt.Errorf("start information: %w", err)
	}
	if err := d.proc.Start(runCtx); err != nil {
		d.info.Stop()
		d.camera.Stop()
		_ = d.media.Stop(context.Background())
		d.releaseLock()
		cancel()
		return fmt.Errorf("start processing: %w", err)
	}
	_ = d.hotplug.Start(runCtx)

	d.running.Store(true)
	d.logger.Info("photobooth daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the services down in reverse startup order and releases the
// lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.hotplug.Stop()
	d.proc.Stop()
	d.info.Stop()
	d.camera.Stop()
	if err := d.media.Stop(context.Background()); err != nil {
		d.logger.Warn("collection stop failed", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("photobooth daemon stopped")
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close stops the daemon. Safe to call more than once.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Events exposes the bus for SSE bridges and CLI followers.
func (d *Daemon) Events() *bus.Bus { return d.events }

// Collection exposes the media collection service.
func (d *Daemon) Collection() *collection.Service { return d.media }

// Processing exposes the job service.
func (d *Daemon) Processing() *processing.Service { return d.proc }

// Share exposes the share/print service.
func (d *Daemon) Share() *share.Service { return d.shares }

// Camera exposes the acquisition supervisor.
func (d *Daemon) Camera() *acquisition.Supervisor { return d.camera }

// Status reports the current runtime state.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
	if count, err := d.media.Count(ctx); err == nil {
		status.MediaCount = count
	}
	if jobID, state, active := d.proc.CurrentJob(); active {
		status.JobActive = true
		status.JobID = jobID
		status.JobState = string(state)
	}
	return status
}
