package processing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"photobooth/internal/acquisition"
	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/mediaproc"
	"photobooth/internal/services"
)

// Service owns job execution. At most one job runs at a time; a second
// trigger fails with an occupied error, except that re-triggering video while
// a video job records stops the recording instead.
type Service struct {
	cfg    *config.Config
	camera *acquisition.Supervisor
	media  *collection.Service
	proc   *mediaproc.Processor
	events *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	runCtx  context.Context
	current *machine
	wg      sync.WaitGroup
}

// NewService wires the processing service to its collaborators.
func NewService(
	cfg *config.Config,
	camera *acquisition.Supervisor,
	media *collection.Service,
	proc *mediaproc.Processor,
	events *bus.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		cfg:    cfg,
		camera: camera,
		media:  media,
		proc:   proc,
		events: events,
		logger: logging.NewComponentLogger(logger, "processing"),
	}
}

// Start records the lifecycle context job threads run under.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runCtx = ctx
	s.logger.Info("processing ready")
	return nil
}

// Stop aborts any running job and waits for its thread to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.current != nil {
		s.current.cmds.push(CmdStopRecording)
		s.current.cmds.push(CmdAbort)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Trigger starts a job for the index-th configured action of the given kind
// and returns its job id.
func (s *Service) Trigger(ctx context.Context, kind mediaitem.MediaKind, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		if kind == mediaitem.KindVideo && s.current.model.Kind() == mediaitem.KindVideo {
			s.current.cmds.push(CmdStopRecording)
			return s.current.model.JobID(), nil
		}
		s.events.Publish(bus.EventFrontendNotification, bus.NotificationPayload{
			Code:    "machine_occupied",
			Message: "another job is already running",
			Level:   "warning",
		})
		return "", services.Wrap(services.ErrOccupied, "processing", "trigger", "job already running", nil)
	}

	model, err := s.buildModel(kind, index)
	if err != nil {
		return "", err
	}

	if err := s.media.IncrementUsage(ctx, model.Name()); err != nil {
		s.logger.Warn("usage stats increment failed",
			logging.String(logging.FieldAction, model.Name()),
			logging.Error(err))
	}

	runCtx := s.runCtx
	if runCtx == nil {
		runCtx = context.Background()
	}
	runCtx = services.WithJobID(runCtx, model.JobID())
	runCtx = services.WithAction(runCtx, model.Name())

	job := newMachine(s.cfg, model, s.camera, s.media, s.proc, s.events, s.logger)
	s.current = job
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := job.run(runCtx); err != nil {
			logging.ErrorWithContext(s.logger, "job failed", "job_failed",
				logging.String(logging.FieldJobID, model.JobID()),
				logging.String(logging.FieldAction, model.Name()),
				logging.Error(err))
			s.events.Publish(bus.EventFrontendNotification, bus.NotificationPayload{
				Code:    "job_failed",
				Message: err.Error(),
				Level:   "error",
			})
		}
		s.mu.Lock()
		if s.current == job {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Info("job triggered",
		logging.String(logging.FieldJobID, model.JobID()),
		logging.String(logging.FieldAction, model.Name()),
		logging.String("kind", string(kind)))
	return model.JobID(), nil
}

func (s *Service) buildModel(kind mediaitem.MediaKind, index int) (JobModel, error) {
	offset := s.cfg.Backends.CountdownCameraCaptureOffset
	outOfRange := func(count int) error {
		return services.Wrap(services.ErrConfiguration, "processing", "trigger",
			fmt.Sprintf("no %s action at index %d (%d configured)", kind, index, count), nil)
	}

	switch kind {
	case mediaitem.KindImage:
		if index < 0 || index >= len(s.cfg.Actions.Image) {
			return nil, outOfRange(len(s.cfg.Actions.Image))
		}
		return newImageJob(s.cfg.Actions.Image[index], offset), nil
	case mediaitem.KindCollage:
		if index < 0 || index >= len(s.cfg.Actions.Collage) {
			return nil, outOfRange(len(s.cfg.Actions.Collage))
		}
		return newCollageJob(s.cfg.Actions.Collage[index], offset), nil
	case mediaitem.KindAnimation:
		if index < 0 || index >= len(s.cfg.Actions.Animation) {
			return nil, outOfRange(len(s.cfg.Actions.Animation))
		}
		return newAnimationJob(s.cfg.Actions.Animation[index], offset), nil
	case mediaitem.KindVideo:
		if index < 0 || index >= len(s.cfg.Actions.Video) {
			return nil, outOfRange(len(s.cfg.Actions.Video))
		}
		return newVideoJob(s.cfg.Actions.Video[index], offset), nil
	case mediaitem.KindMulticamera:
		if index < 0 || index >= len(s.cfg.Actions.Multicamera) {
			return nil, outOfRange(len(s.cfg.Actions.Multicamera))
		}
		return newMulticameraJob(s.cfg.Actions.Multicamera[index], offset), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "processing", "trigger",
			fmt.Sprintf("unknown action kind %q", kind), nil)
	}
}

// Confirm approves the pending capture of the running job.
func (s *Service) Confirm() error { return s.pushCommand(CmdConfirm) }

// Reject discards the pending capture and repeats it.
func (s *Service) Reject() error { return s.pushCommand(CmdReject) }

// Abort cancels the running job and deletes everything it produced.
func (s *Service) Abort() error { return s.pushCommand(CmdAbort) }

// StopRecording ends an active video recording early.
func (s *Service) StopRecording() error { return s.pushCommand(CmdStopRecording) }

func (s *Service) pushCommand(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return services.Wrap(services.ErrNotFound, "processing", "command", "no active job", nil)
	}
	if !s.current.cmds.push(cmd) {
		return services.Wrap(services.ErrOccupied, "processing", "command", "command queue full", nil)
	}
	return nil
}

// Active reports whether a job is currently running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// CurrentJob returns the running job's id and state.
func (s *Service) CurrentJob() (string, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", StateIdle, false
	}
	return s.current.model.JobID(), s.current.State(), true
}

// Wait blocks until the running job finishes. Used by tests and the CLI.
func (s *Service) Wait() {
	s.wg.Wait()
}
