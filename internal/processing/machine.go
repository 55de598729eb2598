package processing

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"photobooth/internal/acquisition"
	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/fileutil"
	"photobooth/internal/logging"
	"photobooth/internal/mediaitem"
	"photobooth/internal/mediaproc"
	"photobooth/internal/services"
)

// State names one machine state.
type State string

const (
	StateIdle              State = "idle"
	StateCounting          State = "counting"
	StateCapture           State = "capture"
	StateMulticapture      State = "multicapture"
	StateRecord            State = "record"
	StateApproveCapture    State = "approve_capture"
	StateCapturesCompleted State = "captures_completed"
	StatePresentCapture    State = "present_capture"
	StateFinished          State = "finished"
)

// JobSnapshot is the observable job state carried by every state event.
type JobSnapshot struct {
	State             string          `json:"state"`
	TotalCaptures     int             `json:"total_captures"`
	CapturesTaken     int             `json:"captures_taken"`
	RemainingCaptures int             `json:"remaining_captures"`
	CountdownSeconds  float64         `json:"countdown_seconds"`
	AskApproval       bool            `json:"ask_user_for_approval"`
	LastCapturedID    string          `json:"last_captured_id"`
	PipelineConfig    json.RawMessage `json:"pipeline_config"`
}

// StateinfoPayload accompanies ProcessStateinfo events.
type StateinfoPayload struct {
	Source      string      `json:"source"`
	Target      string      `json:"target"`
	JobSnapshot JobSnapshot `json:"job_snapshot"`
}

// captureResult records one approval unit: a single still, or the whole file
// set of a multicam shot. Reject rolls back exactly one result.
type captureResult struct {
	itemIDs   []string
	processed []string
}

// machine drives one job from trigger to finished on its own goroutine. All
// entry actions block inline; the hardware waits dominate.
type machine struct {
	cfg    *config.Config
	model  JobModel
	camera *acquisition.Supervisor
	media  *collection.Service
	proc   *mediaproc.Processor
	events *bus.Bus
	cmds   *commandQueue
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	captures []captureResult
}

func newMachine(
	cfg *config.Config,
	model JobModel,
	camera *acquisition.Supervisor,
	media *collection.Service,
	proc *mediaproc.Processor,
	events *bus.Bus,
	logger *slog.Logger,
) *machine {
	return &machine{
		cfg:    cfg,
		model:  model,
		camera: camera,
		media:  media,
		proc:   proc,
		events: events,
		cmds:   newCommandQueue(),
		logger: logger,
		state:  StateIdle,
	}
}

// State reports the current machine state.
func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) setState(target State) {
	m.mu.Lock()
	source := m.state
	m.state = target
	m.mu.Unlock()

	m.events.Publish(bus.EventProcessStateinfo, StateinfoPayload{
		Source:      string(source),
		Target:      string(target),
		JobSnapshot: m.snapshot(target),
	})
	m.logger.Debug("state transition",
		logging.String("source", string(source)),
		logging.String("target", string(target)),
		logging.String(logging.FieldJobID, m.model.JobID()))
}

func (m *machine) snapshot(state State) JobSnapshot {
	return JobSnapshot{
		State:             string(state),
		TotalCaptures:     m.model.TotalCaptures(),
		CapturesTaken:     m.model.CapturesTaken(),
		RemainingCaptures: m.model.TotalCaptures() - m.model.CapturesTaken(),
		CountdownSeconds:  m.model.CountdownDuration().Seconds(),
		AskApproval:       m.model.AskUserForApproval(),
		LastCapturedID:    m.model.LastCapturedID(),
		PipelineConfig:    json.RawMessage(m.model.PipelineConfigJSON()),
	}
}

// run executes the job to completion. The caller owns error reporting; run
// always leaves the machine in finished with the backends back in idle mode.
func (m *machine) run(ctx context.Context) error {
	m.logger = logging.WithContext(ctx, m.logger)

	defer func() {
		m.camera.SignalIdle()
		if m.State() != StateFinished {
			m.setState(StateFinished)
		}
	}()

	m.setState(StateCounting)
	for {
		var err error
		switch m.State() {
		case StateCounting:
			err = m.enterCounting(ctx)
		case StateCapture:
			err = m.enterCapture(ctx)
		case StateMulticapture:
			err = m.enterMulticapture(ctx)
		case StateRecord:
			err = m.enterRecord(ctx)
		case StateApproveCapture:
			err = m.enterApproveCapture(ctx)
		case StateCapturesCompleted:
			err = m.enterCapturesCompleted(ctx)
		case StatePresentCapture:
			m.setState(StateFinished)
		case StateFinished:
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (m *machine) enterCounting(ctx context.Context) error {
	if m.model.Kind() == mediaitem.KindVideo {
		m.camera.SignalVideo()
	} else {
		m.camera.SignalHQPreview()
	}

	m.model.StartCountdown()
	m.model.WaitCountdownFinished()

	switch m.model.Kind() {
	case mediaitem.KindVideo:
		m.setState(StateRecord)
	case mediaitem.KindMulticamera:
		m.setState(StateMulticapture)
	default:
		m.setState(StateCapture)
	}
	return nil
}

func (m *machine) enterCapture(ctx context.Context) error {
	m.camera.SignalHQCapture()

	path, err := m.camera.CaptureStill(ctx)
	if err != nil {
		return err
	}
	item, err := m.ingestCapture(ctx, path, m.model.CapturesTaken())
	if err != nil {
		return err
	}

	m.captures = append(m.captures, captureResult{
		itemIDs:   []string{item.ID},
		processed: []string{item.Processed},
	})
	m.model.RecordCapture(item.ID)
	m.setState(StateApproveCapture)
	return nil
}

func (m *machine) enterMulticapture(ctx context.Context) error {
	m.camera.SignalHQCapture()

	paths, err := m.camera.CaptureMulticam(ctx)
	if err != nil {
		return err
	}
	result := captureResult{}
	var last *mediaitem.MediaItem
	for _, path := range paths {
		item, err := m.ingestCapture(ctx, path, m.model.CapturesTaken())
		if err != nil {
			return err
		}
		result.itemIDs = append(result.itemIDs, item.ID)
		result.processed = append(result.processed, item.Processed)
		last = item
	}

	m.captures = append(m.captures, result)
	m.model.RecordCapture(last.ID)
	m.setState(StateApproveCapture)
	return nil
}

func (m *machine) enterRecord(ctx context.Context) error {
	video, ok := m.model.(*videoJob)
	if !ok {
		return services.Wrap(services.ErrPipeline, "processing", "record", "record state without a video job", nil)
	}

	recording, err := m.camera.StartRecording(ctx, video.framerate())
	if err != nil {
		return err
	}

	// Any queued command ends the recording; a timeout ends it as well.
	if cmd, ok := m.cmds.get(video.maxDuration()); ok && cmd != CmdStopRecording {
		m.logger.Debug("recording stopped by command", logging.String("command", string(cmd)))
	}

	if err := m.camera.StopRecording(ctx); err != nil {
		return err
	}

	ext := filepath.Ext(recording)
	name := mediaitem.NewFilename(time.Now(), ext)
	unprocessed := filepath.Join(m.cfg.UnprocessedDir(), name)
	if err := fileutil.MoveFile(recording, unprocessed); err != nil {
		return services.Wrap(services.ErrPipeline, "processing", "record", "move recording", err)
	}
	processed := filepath.Join(m.cfg.ProcessedDir(), name)
	if err := m.proc.ProcessVideo(ctx, unprocessed, video.action.Processing, processed); err != nil {
		return err
	}

	item := mediaitem.New(mediaitem.KindVideo, m.model.JobID(), unprocessed, processed)
	item.ShowInGallery = m.model.ShowIndividualCapturesInGallery()
	item.PipelineConfig = m.model.PipelineConfigJSON()
	if err := m.media.Add(ctx, item); err != nil {
		return err
	}
	m.model.RecordCapture(item.ID)
	m.setState(StateCapturesCompleted)
	return nil
}

func (m *machine) enterApproveCapture(ctx context.Context) error {
	cmd := CmdConfirm
	if m.model.AskUserForApproval() {
		timeout := time.Duration(m.model.Control().ApproveAutoconfirmTimeout * float64(time.Second))
		for {
			received, ok := m.cmds.get(timeout)
			if !ok {
				// Timeout synthesizes confirm.
				break
			}
			if received == CmdConfirm || received == CmdReject || received == CmdAbort {
				cmd = received
				break
			}
			m.logger.Debug("ignoring command outside approval set", logging.String("command", string(received)))
		}
	}

	switch cmd {
	case CmdReject:
		if err := m.rollbackLastCapture(ctx); err != nil {
			return err
		}
		m.setState(StateCounting)
	case CmdAbort:
		if err := m.media.DeleteJob(ctx, m.model.JobID()); err != nil {
			return err
		}
		m.captures = nil
		m.setState(StateFinished)
	default:
		if m.model.AllCapturesDone() {
			m.setState(StateCapturesCompleted)
		} else {
			m.setState(StateCounting)
		}
	}
	return nil
}

func (m *machine) rollbackLastCapture(ctx context.Context) error {
	if len(m.captures) == 0 {
		return nil
	}
	last := m.captures[len(m.captures)-1]
	for _, id := range last.itemIDs {
		if err := m.media.Delete(ctx, id); err != nil {
			return err
		}
	}
	m.captures = m.captures[:len(m.captures)-1]
	m.model.UndoCapture()
	return nil
}

func (m *machine) enterCapturesCompleted(ctx context.Context) error {
	if m.model.HasPhase2() {
		if err := m.composePhase2(ctx); err != nil {
			return err
		}
	}
	m.setState(StatePresentCapture)
	return nil
}

func (m *machine) composePhase2(ctx context.Context) error {
	var files []string
	for _, capture := range m.captures {
		files = append(files, capture.processed...)
	}

	name := mediaitem.NewFilename(time.Now(), m.model.Phase2Ext())
	unprocessed := filepath.Join(m.cfg.UnprocessedDir(), name)
	if err := m.model.Phase2(ctx, m.proc, files, unprocessed); err != nil {
		return err
	}
	processed := filepath.Join(m.cfg.ProcessedDir(), name)
	if err := fileutil.CopyFile(unprocessed, processed); err != nil {
		return services.Wrap(services.ErrPipeline, "processing", "phase2", "copy composed artifact", err)
	}

	item := mediaitem.New(m.model.Kind(), m.model.JobID(), unprocessed, processed)
	item.PipelineConfig = m.model.PipelineConfigJSON()
	return m.media.Add(ctx, item)
}

// ingestCapture relocates a backend capture into the unprocessed directory,
// runs the phase-1 pipeline, and persists the item.
func (m *machine) ingestCapture(ctx context.Context, capturePath string, index int) (*mediaitem.MediaItem, error) {
	ext := filepath.Ext(capturePath)
	name := mediaitem.NewFilename(time.Now(), ext)
	unprocessed := filepath.Join(m.cfg.UnprocessedDir(), name)
	if err := fileutil.MoveFile(capturePath, unprocessed); err != nil {
		return nil, services.Wrap(services.ErrPipeline, "processing", "capture", "move capture", err)
	}

	def := m.model.Phase1Definition(index)
	processed := filepath.Join(m.cfg.ProcessedDir(), strings.TrimSuffix(name, ext)+".jpg")
	if err := m.proc.Phase1Image(ctx, unprocessed, def, false, processed); err != nil {
		return nil, err
	}

	item := mediaitem.New(mediaitem.KindImage, m.model.JobID(), unprocessed, processed)
	item.ShowInGallery = m.model.ShowIndividualCapturesInGallery()
	if data, err := json.Marshal(def); err == nil {
		item.PipelineConfig = string(data)
	}
	if err := m.media.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}
