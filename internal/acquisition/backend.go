package acquisition

import "context"

// Backend is one camera device. Implementations own their hardware and
// internal capture threads; all methods must be safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs and configuration.
	Name() string

	Start(ctx context.Context) error
	Stop() error

	// IsAlive reports whether the backend is producing frames.
	IsAlive() bool
	// IsFaulty reports whether the backend was flagged for restart, for
	// example after a hotplug remove event.
	IsFaulty() bool
	// MarkFaulty flags the backend; the supervisor reacts by restarting.
	MarkFaulty()

	// WaitForStillFile blocks until a high-quality capture file is
	// available, retrying up to retries times.
	WaitForStillFile(ctx context.Context, retries int) (string, error)
	// WaitForMulticamFiles blocks for one synchronized capture across all
	// sub-cameras, one file each.
	WaitForMulticamFiles(ctx context.Context, retries int) ([]string, error)
	// WaitForLoresImage blocks for one preview-quality JPEG frame.
	WaitForLoresImage(ctx context.Context, retries int) ([]byte, error)

	// StartRecording begins capturing video at the given framerate and
	// returns the path the recording will be written to.
	StartRecording(ctx context.Context, framerate int) (string, error)
	StopRecording(ctx context.Context) error

	// Optimization hooks signal the intended use so backends can adjust
	// sensor settings ahead of time.
	ConfigureOptimizedForIdle()
	ConfigureOptimizedForHQPreview()
	ConfigureOptimizedForHQCapture()
	ConfigureOptimizedForVideo()
}
