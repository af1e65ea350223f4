package ingest

import "go.uber.org/zap"

// Reporter receives failures raised by detached webhook processing. The HTTP
// caller has already been acknowledged by the time these fire, so the sink is
// the only place they surface.
type Reporter interface {
	Report(stage, eventID string, err error)
}

type zapReporter struct {
	logger *zap.Logger
}

// NewZapReporter builds a Reporter that logs every captured failure.
func NewZapReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapReporter{logger: logger}
}

func (r *zapReporter) Report(stage, eventID string, err error) {
	r.logger.Error("webhook processing failure",
		zap.String("stage", stage),
		zap.String("event_id", eventID),
		zap.Error(err))
}
