package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"photobooth/internal/services"
)

// Processor defines the video operations consumed by the resizer and the
// video pipeline.
type Processor interface {
	Version(ctx context.Context) (string, error)
	Scale(ctx context.Context, inputPath, outputPath string, length, bitrateKbps int) error
	Boomerang(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error
	ResizeAnimation(ctx context.Context, inputPath, outputPath string, length int) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithTimeout bounds each invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogDir writes each invocation's output to a log file in dir.
func WithLogDir(dir string) Option {
	return func(c *Client) {
		c.logDir = strings.TrimSpace(dir)
	}
}

const defaultTimeout = 120 * time.Second

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	logDir  string
	exec    Executor

	versionOnce sync.Once
	version     string
	versionErr  error
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: defaultTimeout,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Version returns the first line of `ffmpeg -version`. The result is cached;
// calling it at startup doubles as a binary preflight check.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.versionOnce.Do(func() {
		var first string
		err := c.exec.Run(ctx, c.binary, []string{"-version"}, func(line string) {
			if first == "" {
				first = strings.TrimSpace(line)
			}
		})
		if err != nil {
			c.versionErr = services.Wrap(services.ErrExternalTool, "ffmpeg", "version", "binary not usable", err)
			return
		}
		c.version = first
	})
	return c.version, c.versionErr
}

// Scale re-encodes inputPath so the longest side equals length, cropping odd
// source dimensions by one pixel first. Output is browser-playable H.264
// (yuv420p, faststart).
func (c *Client) Scale(ctx context.Context, inputPath, outputPath string, length, bitrateKbps int) error {
	if err := validatePaths(inputPath, outputPath); err != nil {
		return err
	}
	if length <= 0 {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "scale", "target length must be positive", nil)
	}
	filter := fmt.Sprintf(
		"crop=trunc(iw/2)*2:trunc(ih/2)*2,scale='if(gte(iw,ih),%d,-2)':'if(gte(iw,ih),-2,%d)'",
		evenLength(length), evenLength(length),
	)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vf", filter,
	}
	args = append(args, h264Args(bitrateKbps)...)
	args = append(args, "-y", outputPath)
	return c.run(ctx, "scale", args)
}

// Boomerang writes the input followed by its reverse as one clip.
func (c *Client) Boomerang(ctx context.Context, inputPath, outputPath string, bitrateKbps int) error {
	if err := validatePaths(inputPath, outputPath); err != nil {
		return err
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-filter_complex", "[0:v]reverse[r];[0:v][r]concat=n=2:v=1[outv]",
		"-map", "[outv]",
	}
	args = append(args, h264Args(bitrateKbps)...)
	args = append(args, "-y", outputPath)
	return c.run(ctx, "boomerang", args)
}

// ResizeAnimation scales an animated image (webp, avif, gif) preserving the
// frame timing, looping forever.
func (c *Client) ResizeAnimation(ctx context.Context, inputPath, outputPath string, length int) error {
	if err := validatePaths(inputPath, outputPath); err != nil {
		return err
	}
	if length <= 0 {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "resize_animation", "target length must be positive", nil)
	}
	filter := fmt.Sprintf("scale='if(gte(iw,ih),%d,-1)':'if(gte(iw,ih),-1,%d)'", length, length)
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vf", filter,
		"-loop", "0",
		"-y", outputPath,
	}
	return c.run(ctx, "resize_animation", args)
}

func (c *Client) run(ctx context.Context, operation string, args []string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logFile := c.openLogFile(operation)
	if logFile != nil {
		defer logFile.Close()
		fmt.Fprintf(logFile, "%s %s\n", c.binary, strings.Join(args, " "))
	}

	var tail []string
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		tail = append(tail, line)
		if len(tail) > 10 {
			tail = tail[1:]
		}
		if logFile != nil {
			fmt.Fprintln(logFile, line)
		}
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "ffmpeg", operation, "invocation timed out", err)
		}
		detail := strings.TrimSpace(strings.Join(tail, "; "))
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, detail, err)
	}
	return nil
}

// openLogFile returns nil when no log dir is configured or the file cannot
// be created; invocation logging is best effort.
func (c *Client) openLogFile(operation string) *os.File {
	if c.logDir == "" {
		return nil
	}
	name := fmt.Sprintf("ffmpeg-%s-%s.log", operation, time.Now().Format("20060102-150405.000000"))
	f, err := os.Create(filepath.Join(c.logDir, name))
	if err != nil {
		return nil
	}
	return f
}

func h264Args(bitrateKbps int) []string {
	args := []string{
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	if bitrateKbps > 0 {
		args = append(args, "-b:v", strconv.Itoa(bitrateKbps)+"k")
	}
	return args
}

func evenLength(length int) int {
	if length%2 != 0 {
		return length + 1
	}
	return length
}

func validatePaths(inputPath, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}
	if filepath.Clean(inputPath) == filepath.Clean(outputPath) {
		return errors.New("input and output paths must differ")
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	pipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = cmd.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		if onOutput != nil {
			onOutput(scanner.Text())
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s failed: %w", binary, err)
	}
	return nil
}

var _ Processor = (*Client)(nil)
