package processing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"photobooth/internal/config"
	"photobooth/internal/mediaitem"
	"photobooth/internal/mediaproc"
	"photobooth/internal/services"
)

// JobModel is the capability surface the state machine consumes. One
// implementation exists per action kind; all embed multiCaptureCore for the
// shared counters and countdown.
type JobModel interface {
	// Kind is the media kind of the composed (or single) output.
	Kind() mediaitem.MediaKind
	// Name is the configured action name, used as the usage-stats key.
	Name() string
	JobID() string
	Control() config.JobControl

	TotalCaptures() int
	CapturesTaken() int
	RecordCapture(itemID string)
	// UndoCapture rolls the counter back after a rejected capture.
	UndoCapture()
	LastCapturedID() string
	AllCapturesDone() bool
	AskUserForApproval() bool
	ShowIndividualCapturesInGallery() bool

	StartCountdown()
	WaitCountdownFinished()
	CountdownDuration() time.Duration

	// Phase1Definition returns the processing block for the index-th capture.
	Phase1Definition(index int) config.SinglePictureDefinition

	// HasPhase2 reports whether the job composes a final artifact from the
	// phase-1 outputs. Phase2Ext is the output file extension when it does.
	HasPhase2() bool
	Phase2Ext() string
	Phase2(ctx context.Context, proc *mediaproc.Processor, files []string, output string) error

	// PipelineConfigJSON is the opaque processing snapshot persisted with
	// each produced item.
	PipelineConfigJSON() string
}

// multiCaptureCore holds the per-job state shared by every model.
type multiCaptureCore struct {
	jobID        string
	control      config.JobControl
	cameraOffset float64

	countdown *Countdown
	taken     int
	total     int
	lastID    string
}

func newMultiCaptureCore(control config.JobControl, cameraOffset float64, total int) multiCaptureCore {
	return multiCaptureCore{
		jobID:        uuid.New().String(),
		control:      control,
		cameraOffset: cameraOffset,
		countdown:    NewCountdown(),
		total:        total,
	}
}

func (c *multiCaptureCore) JobID() string              { return c.jobID }
func (c *multiCaptureCore) Control() config.JobControl { return c.control }
func (c *multiCaptureCore) TotalCaptures() int         { return c.total }
func (c *multiCaptureCore) CapturesTaken() int         { return c.taken }
func (c *multiCaptureCore) LastCapturedID() string     { return c.lastID }
func (c *multiCaptureCore) AllCapturesDone() bool      { return c.taken >= c.total }

func (c *multiCaptureCore) RecordCapture(itemID string) {
	c.taken++
	c.lastID = itemID
}

func (c *multiCaptureCore) UndoCapture() {
	if c.taken > 0 {
		c.taken--
	}
	c.lastID = ""
}

func (c *multiCaptureCore) AskUserForApproval() bool {
	return c.control.AskApprovalEachCapture
}

func (c *multiCaptureCore) ShowIndividualCapturesInGallery() bool {
	return c.control.ShowIndividualCapturesInGallery
}

func (c *multiCaptureCore) StartCountdown()        { c.countdown.Start(c.CountdownDuration()) }
func (c *multiCaptureCore) WaitCountdownFinished() { c.countdown.Wait() }

// CountdownDuration selects the configured countdown for the upcoming
// capture and subtracts the camera shutter offset, clipped to zero.
func (c *multiCaptureCore) CountdownDuration() time.Duration {
	seconds := c.control.CountdownCapture
	if c.taken > 0 {
		seconds = c.control.CountdownCaptureSecondFollowing
	}
	seconds -= c.cameraOffset
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func marshalPipelineConfig(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type imageJob struct {
	multiCaptureCore
	action config.ImageAction
}

func newImageJob(action config.ImageAction, cameraOffset float64) *imageJob {
	return &imageJob{
		multiCaptureCore: newMultiCaptureCore(action.JobControl, cameraOffset, 1),
		action:           action,
	}
}

func (j *imageJob) Kind() mediaitem.MediaKind { return mediaitem.KindImage }
func (j *imageJob) Name() string              { return j.action.Name }

func (j *imageJob) Phase1Definition(int) config.SinglePictureDefinition {
	return j.action.Processing
}

func (j *imageJob) HasPhase2() bool   { return false }
func (j *imageJob) Phase2Ext() string { return "" }

func (j *imageJob) Phase2(context.Context, *mediaproc.Processor, []string, string) error {
	return services.Wrap(services.ErrPipeline, "processing", "phase2", "image jobs have no composition phase", nil)
}

func (j *imageJob) PipelineConfigJSON() string { return marshalPipelineConfig(j.action.Processing) }

type collageJob struct {
	multiCaptureCore
	action config.CollageAction
	// captureSlots maps capture index to merge-definition slot index.
	captureSlots []int
}

func newCollageJob(action config.CollageAction, cameraOffset float64) *collageJob {
	var slots []int
	for i, def := range action.Processing.MergeDefinition {
		if def.PredefinedImage == "" {
			slots = append(slots, i)
		}
	}
	return &collageJob{
		multiCaptureCore: newMultiCaptureCore(action.JobControl, cameraOffset, len(slots)),
		action:           action,
		captureSlots:     slots,
	}
}

func (j *collageJob) Kind() mediaitem.MediaKind { return mediaitem.KindCollage }
func (j *collageJob) Name() string              { return j.action.Name }

// Phase1Definition applies the slot filter on top of the shared captured
// processing block so each collage position can carry its own look.
func (j *collageJob) Phase1Definition(index int) config.SinglePictureDefinition {
	def := j.action.Processing.CapturedProcessing
	if index >= 0 && index < len(j.captureSlots) {
		if filter := j.action.Processing.MergeDefinition[j.captureSlots[index]].Filter; filter != "" {
			def.Filter = filter
		}
	}
	return def
}

func (j *collageJob) HasPhase2() bool   { return true }
func (j *collageJob) Phase2Ext() string { return ".jpg" }

func (j *collageJob) Phase2(ctx context.Context, proc *mediaproc.Processor, files []string, output string) error {
	return proc.ComposeCollage(ctx, files, j.action.Processing, output)
}

func (j *collageJob) PipelineConfigJSON() string { return marshalPipelineConfig(j.action.Processing) }

type animationJob struct {
	multiCaptureCore
	action config.AnimationAction
}

func newAnimationJob(action config.AnimationAction, cameraOffset float64) *animationJob {
	total := 0
	for _, def := range action.Processing.MergeDefinition {
		if def.PredefinedImage == "" {
			total++
		}
	}
	return &animationJob{
		multiCaptureCore: newMultiCaptureCore(action.JobControl, cameraOffset, total),
		action:           action,
	}
}

func (j *animationJob) Kind() mediaitem.MediaKind { return mediaitem.KindAnimation }
func (j *animationJob) Name() string              { return j.action.Name }

func (j *animationJob) Phase1Definition(int) config.SinglePictureDefinition {
	return j.action.Processing.CapturedProcessing
}

func (j *animationJob) HasPhase2() bool   { return true }
func (j *animationJob) Phase2Ext() string { return ".gif" }

func (j *animationJob) Phase2(ctx context.Context, proc *mediaproc.Processor, files []string, output string) error {
	return proc.ComposeAnimation(ctx, files, j.action.Processing, output)
}

func (j *animationJob) PipelineConfigJSON() string { return marshalPipelineConfig(j.action.Processing) }

type videoJob struct {
	multiCaptureCore
	action config.VideoAction
}

func newVideoJob(action config.VideoAction, cameraOffset float64) *videoJob {
	return &videoJob{
		multiCaptureCore: newMultiCaptureCore(action.JobControl, cameraOffset, 1),
		action:           action,
	}
}

func (j *videoJob) Kind() mediaitem.MediaKind { return mediaitem.KindVideo }
func (j *videoJob) Name() string              { return j.action.Name }

func (j *videoJob) Phase1Definition(int) config.SinglePictureDefinition {
	return config.SinglePictureDefinition{}
}

func (j *videoJob) HasPhase2() bool   { return false }
func (j *videoJob) Phase2Ext() string { return "" }

func (j *videoJob) Phase2(context.Context, *mediaproc.Processor, []string, string) error {
	return services.Wrap(services.ErrPipeline, "processing", "phase2", "video jobs have no composition phase", nil)
}

func (j *videoJob) PipelineConfigJSON() string { return marshalPipelineConfig(j.action.Processing) }

func (j *videoJob) framerate() int {
	if j.action.Processing.VideoFramerate > 0 {
		return j.action.Processing.VideoFramerate
	}
	return 25
}

func (j *videoJob) maxDuration() time.Duration {
	seconds := j.action.Processing.VideoDurationSeconds
	if seconds <= 0 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

type multicameraJob struct {
	multiCaptureCore
	action config.MulticameraAction
}

func newMulticameraJob(action config.MulticameraAction, cameraOffset float64) *multicameraJob {
	return &multicameraJob{
		multiCaptureCore: newMultiCaptureCore(action.JobControl, cameraOffset, 1),
		action:           action,
	}
}

func (j *multicameraJob) Kind() mediaitem.MediaKind { return mediaitem.KindMulticamera }
func (j *multicameraJob) Name() string              { return j.action.Name }

func (j *multicameraJob) Phase1Definition(int) config.SinglePictureDefinition {
	return j.action.Processing.CapturedProcessing
}

func (j *multicameraJob) HasPhase2() bool   { return true }
func (j *multicameraJob) Phase2Ext() string { return ".gif" }

func (j *multicameraJob) Phase2(ctx context.Context, proc *mediaproc.Processor, files []string, output string) error {
	return proc.ComposeWigglegram(ctx, files, j.action.Processing, output)
}

func (j *multicameraJob) PipelineConfigJSON() string { return marshalPipelineConfig(j.action.Processing) }
