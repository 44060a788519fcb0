package audit

import (
	"context"
	"strings"
	"time"

	"modbus-core/internal/sinks"
)

// LogSink returns a sinks.LogFunc that both forwards to next (if non-nil,
// e.g. a stderr logger) and records a ledger Event classified from the log
// line's content. It lets instance.Instance wire one capability-passed sink
// that serves both concerns instead of threading two separate function
// values through every call site.
func (l *Ledger) LogSink(endpoint string, next sinks.LogFunc) sinks.LogFunc {
	return func(msg string) {
		if next != nil {
			next(msg)
		}
		kind, severity := classify(msg)
		_ = l.Record(context.Background(), endpoint, kind, severity, msg, time.Now())
	}
}

func classify(msg string) (Kind, Severity) {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "disconnected"):
		return KindDisconnected, SeverityInfo
	case strings.Contains(lower, "connected"):
		return KindConnected, SeverityInfo
	case strings.Contains(lower, "exceeded retry budget"):
		return KindRetryEscalation, SeverityWarn
	case strings.Contains(lower, "timed out"):
		return KindTimedOut, SeverityError
	case strings.Contains(lower, "failed"):
		return KindServerException, SeverityError
	default:
		return KindOperational, SeverityInfo
	}
}
