package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/habittracker/habit-api/internal/api/metrics"
)

// Recorder appends audit events. Record never fails the caller: a sink
// outage falls back to the application log so the event is not lost.
type Recorder interface {
	Record(ctx context.Context, event Event)
	Close() error
}

// Config selects the audit sink.
type Config struct {
	// Output is "stdout", "stderr", or a file path.
	Output string
}

type fileRecorder struct {
	mu        sync.Mutex
	writer    io.Writer
	closer    io.Closer
	log       zerolog.Logger
	closeOnce sync.Once
}

// NewRecorder opens the configured sink and returns a file-backed Recorder.
func NewRecorder(cfg Config, log zerolog.Logger) (Recorder, error) {
	writer, closer, err := openSink(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &fileRecorder{writer: writer, closer: closer, log: log}, nil
}

func openSink(output string) (io.Writer, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		return file, file, nil
	}
}

// Record appends one event as a JSON line. The write is serialized so
// concurrent requests never interleave bytes within a line. Missing
// timestamp and correlation id are filled in from the clock and ctx.
func (r *fileRecorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = CorrelationID(ctx)
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}

	metrics.AuditEventsTotal.WithLabelValues(string(event.Action), event.Status).Inc()

	line, err := json.Marshal(event)
	if err != nil {
		r.fallback(event, err)
		return
	}
	line = append(line, '\n')

	r.mu.Lock()
	_, err = r.writer.Write(line)
	r.mu.Unlock()
	if err != nil {
		r.fallback(event, err)
	}
}

// fallback re-emits the event through the application log so a sink outage
// never silently drops a non-repudiation record.
func (r *fileRecorder) fallback(event Event, cause error) {
	metrics.AuditFallbackTotal.Inc()
	r.log.Error().
		Err(cause).
		Str("action", string(event.Action)).
		Str("resource_type", event.ResourceType).
		Str("resource_id", event.ResourceID).
		Str("user_id", event.UserID).
		Str("correlation_id", event.CorrelationID).
		Str("status", event.Status).
		Interface("details", event.Details).
		Msg("audit sink write failed, event preserved in application log")
}

// Close closes the sink when it is a file. Safe to call multiple times.
func (r *fileRecorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.closer != nil {
			err = r.closer.Close()
		}
	})
	return err
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Event) {}
func (nopRecorder) Close() error                  { return nil }

// Nop returns a Recorder that discards everything. Intended for tests.
func Nop() Recorder {
	return nopRecorder{}
}
