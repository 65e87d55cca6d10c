package common

import (
	"context"
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// --------------------------------------------------------------------------
// Operation Metrics
// --------------------------------------------------------------------------

// OpMetrics counts requests, errors and latencies per operation.
// The client and the server each own one instance with their own name prefix
// (e.g. dfs_client_requests_total{op="get"}).
type OpMetrics struct {
	set    *metrics.Set
	prefix string
}

// NewOpMetrics creates a new metric set whose names start with prefix
func NewOpMetrics(prefix string) *OpMetrics {
	return &OpMetrics{
		set:    metrics.NewSet(),
		prefix: prefix,
	}
}

// Observe records one finished request of op that started at start. err may be nil.
func (m *OpMetrics) Observe(op OpCode, start time.Time, err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`%s_requests_total{op=%q}`, m.prefix, op)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`%s_request_duration_seconds{op=%q}`, m.prefix, op)).UpdateDuration(start)
	if err != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`%s_errors_total{op=%q,kind=%q}`, m.prefix, op, ErrorKind(err))).Inc()
	}
}

// Requests returns the number of recorded requests of op
func (m *OpMetrics) Requests(op OpCode) uint64 {
	return m.set.GetOrCreateCounter(fmt.Sprintf(`%s_requests_total{op=%q}`, m.prefix, op)).Get()
}

// Errors returns the number of recorded errors of op with the given kind (see ErrorKind)
func (m *OpMetrics) Errors(op OpCode, kind string) uint64 {
	return m.set.GetOrCreateCounter(fmt.Sprintf(`%s_errors_total{op=%q,kind=%q}`, m.prefix, op, kind)).Get()
}

// WritePrometheus writes all metrics in the Prometheus text format to w
func (m *OpMetrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// ErrorKind returns a short label for err that is used in the error metrics
func ErrorKind(err error) string {
	var e *Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case !errors.As(err, &e):
		return "other"
	}

	switch e.Code {
	case ErrCTimeout:
		return "timeout"
	case ErrCFraming:
		return "framing"
	case ErrCProtocol:
		return "protocol"
	case ErrCUnrecognizedStatus:
		return "unrecognized_status"
	case ErrCInvalidRequest:
		return "invalid_request"
	default:
		return "other"
	}
}
