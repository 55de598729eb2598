package acquisition

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"photobooth/internal/services"
)

const virtualCameras = 3

// VirtualBackend produces synthetic JPEG frames without hardware. It backs
// development setups and tests and is the default configured backend.
type VirtualBackend struct {
	name string
	dir  string

	mu            sync.Mutex
	alive         bool
	faulty        bool
	mode          string
	counter       int
	recordingPath string
}

// NewVirtualBackend creates a virtual backend writing its files under dir.
func NewVirtualBackend(name, dir string) *VirtualBackend {
	return &VirtualBackend{name: name, dir: dir, mode: "idle"}
}

func (b *VirtualBackend) Name() string { return b.name }

func (b *VirtualBackend) Start(ctx context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return services.Wrap(services.ErrBackend, b.name, "start", "create working dir", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alive = true
	b.faulty = false
	return nil
}

func (b *VirtualBackend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alive = false
	return nil
}

func (b *VirtualBackend) IsAlive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.alive
}

func (b *VirtualBackend) IsFaulty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faulty
}

func (b *VirtualBackend) MarkFaulty() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faulty = true
}

// Mode reports the last optimization hint. Used by tests.
func (b *VirtualBackend) Mode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

func (b *VirtualBackend) WaitForStillFile(ctx context.Context, retries int) (string, error) {
	frame, err := b.renderFrame()
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.dir, fmt.Sprintf("virtual-%d.jpg", time.Now().UnixNano()))
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		return "", services.Wrap(services.ErrBackend, b.name, "still", path, err)
	}
	return path, nil
}

func (b *VirtualBackend) WaitForMulticamFiles(ctx context.Context, retries int) ([]string, error) {
	stamp := time.Now().UnixNano()
	paths := make([]string, 0, virtualCameras)
	for cam := 0; cam < virtualCameras; cam++ {
		frame, err := b.renderFrame()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(b.dir, fmt.Sprintf("virtual-%d-cam%d.jpg", stamp, cam))
		if err := os.WriteFile(path, frame, 0o644); err != nil {
			return nil, services.Wrap(services.ErrBackend, b.name, "multicam", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (b *VirtualBackend) WaitForLoresImage(ctx context.Context, retries int) ([]byte, error) {
	return b.renderFrame()
}

func (b *VirtualBackend) StartRecording(ctx context.Context, framerate int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return "", services.Wrap(services.ErrBackend, b.name, "start_recording", "backend not running", nil)
	}
	b.recordingPath = filepath.Join(b.dir, fmt.Sprintf("virtual-%d.mp4", time.Now().UnixNano()))
	return b.recordingPath, nil
}

func (b *VirtualBackend) StopRecording(ctx context.Context) error {
	b.mu.Lock()
	path := b.recordingPath
	b.recordingPath = ""
	b.mu.Unlock()
	if path == "" {
		return nil
	}
	// A placeholder payload stands in for encoded video.
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, 4096), 0o644); err != nil {
		return services.Wrap(services.ErrBackend, b.name, "stop_recording", path, err)
	}
	return nil
}

func (b *VirtualBackend) ConfigureOptimizedForIdle()      { b.setMode("idle") }
func (b *VirtualBackend) ConfigureOptimizedForHQPreview() { b.setMode("hq_preview") }
func (b *VirtualBackend) ConfigureOptimizedForHQCapture() { b.setMode("hq_capture") }
func (b *VirtualBackend) ConfigureOptimizedForVideo()     { b.setMode("video") }

func (b *VirtualBackend) setMode(mode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

// renderFrame encodes one synthetic JPEG whose color cycles per capture so
// consecutive frames are distinguishable.
func (b *VirtualBackend) renderFrame() ([]byte, error) {
	b.mu.Lock()
	if !b.alive {
		b.mu.Unlock()
		return nil, services.Wrap(services.ErrBackend, b.name, "frame", "backend not running", nil)
	}
	b.counter++
	counter := b.counter
	b.mu.Unlock()

	shade := uint8(40 + (counter*31)%180)
	img := imaging.New(640, 480, color.NRGBA{R: shade, G: 80, B: 255 - shade, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, services.Wrap(services.ErrBackend, b.name, "frame", "encode", err)
	}
	return buf.Bytes(), nil
}
