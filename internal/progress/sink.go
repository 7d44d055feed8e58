package progress

import "log/slog"

// Sink consumes progress events. Implementations must be safe for
// concurrent use and must not block for long: the pipeline records events
// inline between fetches.
type Sink interface {
	Record(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Record calls f(event).
func (f SinkFunc) Record(event Event) {
	f(event)
}

// NopSink discards all events. It is the default when no sink is
// configured, so emitting progress never needs a nil check.
type NopSink struct{}

// Record does nothing.
func (NopSink) Record(Event) {}

// MultiSink fans every event out to each sink in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a sink that forwards to all given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: append([]Sink(nil), sinks...)}
}

// Record forwards the event to every sink.
func (m *MultiSink) Record(event Event) {
	for _, s := range m.sinks {
		s.Record(event)
	}
}

// LogSink writes events to a structured logger. Run and phase milestones
// log at info, item completions at debug, and failures at warn, so a
// default-level logger shows the run shape without per-item spam.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to logger. A nil logger falls back to
// slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record logs the event with structured attributes.
func (s *LogSink) Record(event Event) {
	switch event.Stage {
	case StageItem:
		attrs := []any{
			slog.String("url", event.URL),
			slog.String("role", event.Role.String()),
			slog.String("outcome", string(event.Outcome)),
			slog.Int("done", event.Done),
			slog.Int("total", event.Total),
		}
		if event.Outcome == OutcomeFailed || event.Outcome == OutcomeSkipped {
			attrs = append(attrs, slog.String("kind", event.Kind.String()), slog.String("reason", event.Message))
			s.logger.Warn("item not extracted", attrs...)
			return
		}
		s.logger.Debug("item finished", attrs...)
	case StagePhase:
		s.logger.Info("phase changed", slog.String("run_id", event.RunID), slog.String("phase", event.Phase.String()))
	case StageArtifact:
		s.logger.Info("artifact written", slog.String("path", event.Message))
	case StageRunStart:
		s.logger.Info("run started", slog.String("run_id", event.RunID), slog.String("url", event.URL))
	case StageRunDone:
		s.logger.Info("run finished",
			slog.String("run_id", event.RunID),
			slog.String("phase", event.Phase.String()),
			slog.Int("done", event.Done),
			slog.Int("total", event.Total),
		)
	default:
		s.logger.Debug("progress event", slog.String("stage", string(event.Stage)))
	}
}
