package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photobooth/internal/services"
)

type fakeExecutor struct {
	calls  [][]string
	lines  []string
	err    error
	binary string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	f.binary = binary
	f.calls = append(f.calls, args)
	for _, line := range f.lines {
		if onOutput != nil {
			onOutput(line)
		}
	}
	return f.err
}

func newTestClient(t *testing.T, exec *fakeExecutor) *Client {
	t.Helper()
	client, err := New("ffmpeg", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestScaleBuildsH264Args(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestClient(t, exec)

	if err := client.Scale(context.Background(), "/in.mp4", "/out.mp4", 1200, 5000); err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("calls = %d", len(exec.calls))
	}
	joined := strings.Join(exec.calls[0], " ")
	for _, want := range []string{
		"crop=trunc(iw/2)*2:trunc(ih/2)*2",
		"libx264",
		"yuv420p",
		"+faststart",
		"-b:v 5000k",
		"/out.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %s", want, joined)
		}
	}
}

func TestScaleRejectsNonPositiveLength(t *testing.T) {
	client := newTestClient(t, &fakeExecutor{})
	err := client.Scale(context.Background(), "/in.mp4", "/out.mp4", 0, 0)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBoomerangFilter(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestClient(t, exec)

	if err := client.Boomerang(context.Background(), "/in.mp4", "/out.mp4", 0); err != nil {
		t.Fatalf("Boomerang: %v", err)
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "[0:v]reverse[r];[0:v][r]concat=n=2:v=1[outv]") {
		t.Fatalf("missing boomerang filter: %s", joined)
	}
	if strings.Contains(joined, "-b:v") {
		t.Fatalf("zero bitrate should omit -b:v: %s", joined)
	}
}

func TestResizeAnimationLoopsForever(t *testing.T) {
	exec := &fakeExecutor{}
	client := newTestClient(t, exec)

	if err := client.ResizeAnimation(context.Background(), "/in.webp", "/out.webp", 400); err != nil {
		t.Fatalf("ResizeAnimation: %v", err)
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "-loop 0") {
		t.Fatalf("missing loop flag: %s", joined)
	}
}

func TestRunWrapsFailureWithStderrTail(t *testing.T) {
	exec := &fakeExecutor{
		lines: []string{"some banner", "Invalid data found when processing input"},
		err:   errors.New("exit status 1"),
	}
	client := newTestClient(t, exec)

	err := client.Scale(context.Background(), "/in.mp4", "/out.mp4", 800, 0)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("stderr tail not surfaced: %v", err)
	}
}

func TestSamePathRejected(t *testing.T) {
	client := newTestClient(t, &fakeExecutor{})
	if err := client.Scale(context.Background(), "/a.mp4", "/a.mp4", 800, 0); err == nil {
		t.Fatal("expected error for identical input and output")
	}
}

func TestRunWritesInvocationLog(t *testing.T) {
	exec := &fakeExecutor{lines: []string{"frame=  42 fps=0.0"}}
	dir := t.TempDir()
	client, err := New("ffmpeg", WithExecutor(exec), WithLogDir(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := client.Scale(context.Background(), "/in.mp4", "/out.mp4", 800, 0); err != nil {
		t.Fatalf("Scale: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}
	if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "ffmpeg-scale-") {
		t.Fatalf("unexpected log dir contents: %v", entries)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "frame=  42") {
		t.Fatalf("log file missing output: %q", data)
	}
}

func TestVersionCachesResult(t *testing.T) {
	exec := &fakeExecutor{lines: []string{"ffmpeg version 7.1 Copyright (c) 2000-2024"}}
	client := newTestClient(t, exec)

	v1, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	v2, err := client.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v1 != v2 || !strings.Contains(v1, "ffmpeg version 7.1") {
		t.Fatalf("version = %q / %q", v1, v2)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("version should be invoked once, got %d", len(exec.calls))
	}
}
