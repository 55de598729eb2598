package acquisition_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"photobooth/internal/acquisition"
	"photobooth/internal/logging"
	"photobooth/internal/services"
	"photobooth/internal/testsupport"
)

func newTestSupervisor(t *testing.T) *acquisition.Supervisor {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	supervisor, err := acquisition.NewSupervisor(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	return supervisor
}

func TestVirtualBackendProducesDecodableJPEG(t *testing.T) {
	backend := acquisition.NewVirtualBackend("virtual", t.TempDir())
	if err := backend.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer backend.Stop()

	path, err := backend.WaitForStillFile(context.Background(), 3)
	if err != nil {
		t.Fatalf("WaitForStillFile: %v", err)
	}
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("decode still: %v", err)
	}
	if img.Bounds().Empty() {
		t.Fatal("still image has empty bounds")
	}

	frame, err := backend.WaitForLoresImage(context.Background(), 1)
	if err != nil {
		t.Fatalf("WaitForLoresImage: %v", err)
	}
	if _, err := imaging.Decode(bytes.NewReader(frame)); err != nil {
		t.Fatalf("decode lores frame: %v", err)
	}
}

func TestVirtualBackendMulticamCaptureSet(t *testing.T) {
	backend := acquisition.NewVirtualBackend("virtual", t.TempDir())
	if err := backend.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer backend.Stop()

	paths, err := backend.WaitForMulticamFiles(context.Background(), 3)
	if err != nil {
		t.Fatalf("WaitForMulticamFiles: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("capture set size = %d, want 3", len(paths))
	}
	for _, path := range paths {
		if _, err := imaging.Open(path); err != nil {
			t.Fatalf("decode %s: %v", filepath.Base(path), err)
		}
	}
}

func TestVirtualBackendRecording(t *testing.T) {
	backend := acquisition.NewVirtualBackend("virtual", t.TempDir())
	if err := backend.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer backend.Stop()

	path, err := backend.StartRecording(context.Background(), 25)
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := backend.StopRecording(context.Background()); err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("recording file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("recording file is empty")
	}
}

func TestVirtualBackendRefusesWhenStopped(t *testing.T) {
	backend := acquisition.NewVirtualBackend("virtual", t.TempDir())
	if _, err := backend.WaitForStillFile(context.Background(), 1); !errors.Is(err, services.ErrBackend) {
		t.Fatalf("err = %v, want ErrBackend", err)
	}
}

func TestSupervisorCapturesStillAndMulticam(t *testing.T) {
	supervisor := newTestSupervisor(t)
	if err := supervisor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer supervisor.Stop()

	path, err := supervisor.CaptureStill(context.Background())
	if err != nil {
		t.Fatalf("CaptureStill: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("still file missing: %v", err)
	}

	paths, err := supervisor.CaptureMulticam(context.Background())
	if err != nil {
		t.Fatalf("CaptureMulticam: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("multicam set size = %d, want 3", len(paths))
	}
}

func TestSupervisorRestartsFaultyBackends(t *testing.T) {
	supervisor := newTestSupervisor(t)
	if err := supervisor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer supervisor.Stop()

	supervisor.MarkAllFaulty()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		backend := supervisor.StillsBackend()
		if backend.IsAlive() && !backend.IsFaulty() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("faulty backend was not restarted")
}

func TestSupervisorSignalsReachBackends(t *testing.T) {
	supervisor := newTestSupervisor(t)
	if err := supervisor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer supervisor.Stop()

	supervisor.SignalHQCapture()
	virtual, ok := supervisor.StillsBackend().(*acquisition.VirtualBackend)
	if !ok {
		t.Fatalf("stills backend is %T", supervisor.StillsBackend())
	}
	if mode := virtual.Mode(); mode != "hq_capture" {
		t.Fatalf("mode = %q, want hq_capture", mode)
	}
	supervisor.SignalIdle()
	if mode := virtual.Mode(); mode != "idle" {
		t.Fatalf("mode = %q, want idle", mode)
	}
}

// limitWriter fails after a fixed number of bytes so GenStream terminates.
type limitWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.buf.Len() >= w.limit {
		return 0, fmt.Errorf("write limit reached")
	}
	return w.buf.Write(p)
}

func TestGenStreamWritesMultipartJPEGFrames(t *testing.T) {
	supervisor := newTestSupervisor(t)
	if err := supervisor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer supervisor.Stop()

	writer := &limitWriter{limit: 64 * 1024}
	if err := supervisor.GenStream(context.Background(), writer); err != nil {
		t.Fatalf("GenStream: %v", err)
	}

	output := writer.buf.String()
	if !strings.Contains(output, "--"+acquisition.StreamBoundary) {
		t.Fatal("stream is missing the multipart boundary")
	}
	if !strings.Contains(output, "Content-Type: image/jpeg") {
		t.Fatal("stream is missing the jpeg part header")
	}
	if !bytes.Contains(writer.buf.Bytes(), []byte{0xff, 0xd8, 0xff}) {
		t.Fatal("stream carries no jpeg payload")
	}
}

func TestHotplugMonitorStartIsNonFatal(t *testing.T) {
	monitor := acquisition.NewHotplugMonitor(logging.NewNop(), nil)
	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	monitor.Stop()
	if monitor.Running() {
		t.Fatal("monitor still running after Stop")
	}
}
