package share

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/services"
)

// Runner abstracts shell command execution for testability.
type Runner interface {
	Run(ctx context.Context, command string, onOutput func(string)) error
}

// Option configures the service.
type Option func(*Service)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(s *Service) {
		if runner != nil {
			s.runner = runner
		}
	}
}

const defaultActionTimeout = 30 * time.Second

// Service executes share actions against collection items.
type Service struct {
	cfg    *config.Config
	media  *collection.Service
	events *bus.Bus
	logger *slog.Logger
	runner Runner
}

// NewService wires the share service.
func NewService(cfg *config.Config, media *collection.Service, events *bus.Bus, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		media:  media,
		events: events,
		logger: logging.NewComponentLogger(logger, "share"),
		runner: shellRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Actions lists the configured share channels.
func (s *Service) Actions() []config.ShareAction {
	return s.cfg.Share.Actions
}

// Share runs the named action for the given item. params carries additional
// user-named placeholders substituted into the command alongside {filename}.
func (s *Service) Share(ctx context.Context, actionName, itemID string, params map[string]string) error {
	if !s.cfg.Share.Enabled {
		return services.Wrap(services.ErrConfiguration, "share", "share", "share service is disabled", nil)
	}

	action, ok := s.findAction(actionName)
	if !ok {
		return services.Wrap(services.ErrNotFound, "share", "share",
			fmt.Sprintf("no share action named %q", actionName), nil)
	}

	item, err := s.media.Get(ctx, itemID)
	if err != nil {
		return err
	}

	if !kindAllowed(action, string(item.Kind)) {
		s.notify("share_wrong_media_type",
			fmt.Sprintf("action %q does not accept %s media", action.Name, item.Kind), "warning")
		return services.Wrap(services.ErrWrongMediaType, "share", "share",
			fmt.Sprintf("action %q does not accept kind %q", action.Name, item.Kind), nil)
	}

	if err := s.checkLimits(ctx, action); err != nil {
		return err
	}

	command := substitute(action.Command, item.Processed, params)
	timeout := defaultActionTimeout
	if action.TimeoutSeconds > 0 {
		timeout = time.Duration(action.TimeoutSeconds) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var tail []string
	runErr := s.runner.Run(runCtx, command, func(line string) {
		tail = append(tail, line)
		if len(tail) > 10 {
			tail = tail[1:]
		}
	})
	if runErr != nil {
		detail := strings.TrimSpace(strings.Join(tail, "; "))
		s.notify("share_failed",
			fmt.Sprintf("action %q failed: %s", action.Name, detail), "error")
		if runCtx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "share", action.Name, "command timed out", runErr)
		}
		return services.Wrap(services.ErrExternalTool, "share", action.Name, detail, runErr)
	}

	if err := s.media.IncrementUsage(ctx, action.Name); err != nil {
		s.logger.Warn("share usage increment failed",
			logging.String(logging.FieldAction, action.Name),
			logging.Error(err))
	}
	s.notify("share_done", fmt.Sprintf("action %q completed", action.Name), "info")
	s.logger.Info("share action completed",
		logging.String(logging.FieldAction, action.Name),
		logging.String(logging.FieldMediaItem, itemID))
	return nil
}

func (s *Service) findAction(name string) (config.ShareAction, bool) {
	for _, action := range s.cfg.Share.Actions {
		if action.Name == name {
			return action, true
		}
	}
	return config.ShareAction{}, false
}

// checkLimits enforces the per-action share quota and cool-down window.
func (s *Service) checkLimits(ctx context.Context, action config.ShareAction) error {
	if action.MaxShares <= 0 && action.BlockedSeconds <= 0 {
		return nil
	}
	stat, found, err := s.media.Store().UsageFor(ctx, action.Name)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if action.MaxShares > 0 && stat.Count >= int64(action.MaxShares) {
		s.notify("share_quota_reached",
			fmt.Sprintf("action %q reached its limit of %d", action.Name, action.MaxShares), "warning")
		return services.Wrap(services.ErrOccupied, "share", action.Name, "share quota reached", nil)
	}
	if action.BlockedSeconds > 0 && stat.LastUsedAt != nil {
		window := time.Duration(action.BlockedSeconds) * time.Second
		if remaining := window - time.Since(*stat.LastUsedAt); remaining > 0 {
			s.notify("share_blocked",
				fmt.Sprintf("action %q is blocked for %.0f more seconds", action.Name, remaining.Seconds()), "warning")
			return services.Wrap(services.ErrOccupied, "share", action.Name, "share action is cooling down", nil)
		}
	}
	return nil
}

func (s *Service) notify(code, message, level string) {
	s.events.Publish(bus.EventFrontendNotification, bus.NotificationPayload{
		Code:    code,
		Message: message,
		Level:   level,
	})
}

func kindAllowed(action config.ShareAction, kind string) bool {
	if len(action.MediaKinds) == 0 {
		return true
	}
	for _, allowed := range action.MediaKinds {
		if strings.EqualFold(allowed, kind) {
			return true
		}
	}
	return false
}

// substitute replaces {filename} and every {name} from params in the command
// template.
func substitute(command, filename string, params map[string]string) string {
	replacements := []string{"{filename}", filename}
	for key, value := range params {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(command)
}

type shellRunner struct{}

func (shellRunner) Run(ctx context.Context, command string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	pipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = cmd.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		if onOutput != nil {
			onOutput(scanner.Text())
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
