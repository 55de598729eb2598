package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPipeline       = errors.New("pipeline error")
	ErrOccupied       = errors.New("occupied")
	ErrBackend        = errors.New("backend error")
	ErrNotFound       = errors.New("not found")
	ErrWrongMediaType = errors.New("wrong media type")
	ErrConfiguration  = errors.New("configuration error")
	ErrTimeout        = errors.New("timeout")
	ErrExternalTool   = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPipeline
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserFacing reports whether the error should be surfaced to the frontend as a
// notification rather than only logged.
func UserFacing(err error) bool {
	switch {
	case errors.Is(err, ErrOccupied),
		errors.Is(err, ErrWrongMediaType),
		errors.Is(err, ErrNotFound):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
