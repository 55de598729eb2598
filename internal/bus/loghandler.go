package bus

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// EventLogRecord carries structured log records to frontend consumers.
const EventLogRecord EventType = "LogRecord"

// LogRecordPayload accompanies LogRecord events.
type LogRecordPayload struct {
	Time      time.Time         `json:"time"`
	Level     string            `json:"level"`
	Component string            `json:"component"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogHandler forwards records to an inner slog handler and republishes
// info-and-above records as LogRecord events.
type LogHandler struct {
	inner slog.Handler
	bus   *Bus
	attrs []slog.Attr
}

// NewLogHandler wraps inner so records also reach bus subscribers.
func NewLogHandler(inner slog.Handler, bus *Bus) *LogHandler {
	return &LogHandler{inner: inner, bus: bus}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.inner.Handle(ctx, record)
	if h.bus == nil || record.Level < slog.LevelInfo {
		return err
	}

	payload := LogRecordPayload{
		Time:    record.Time,
		Level:   strings.ToLower(record.Level.String()),
		Message: record.Message,
	}
	if payload.Time.IsZero() {
		payload.Time = time.Now()
	}
	collect := func(attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		if attr.Key == "component" {
			payload.Component = attr.Value.String()
			return
		}
		if attr.Key == "" || attr.Value.Kind() == slog.KindGroup {
			return
		}
		if payload.Fields == nil {
			payload.Fields = make(map[string]string)
		}
		payload.Fields[attr.Key] = attr.Value.String()
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		collect(attr)
		return true
	})

	h.bus.Publish(EventLogRecord, payload)
	return err
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &LogHandler{inner: h.inner.WithAttrs(attrs), bus: h.bus, attrs: merged}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{inner: h.inner.WithGroup(name), bus: h.bus, attrs: h.attrs}
}
