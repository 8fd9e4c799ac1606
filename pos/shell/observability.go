package shell

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

const (
	// QueryHandlerDurationMetric tracks query execution duration.
	QueryHandlerDurationMetric = "queryhandler_handle_duration_seconds"

	// QueryHandlerCallsMetric tracks total query calls.
	QueryHandlerCallsMetric = "queryhandler_handle_calls_total"

	// QueryHandlerCanceledMetric tracks canceled query operations.
	QueryHandlerCanceledMetric = "queryhandler_canceled_operations_total"

	// QueryHandlerTimeoutMetric tracks timeout query operations.
	QueryHandlerTimeoutMetric = "queryhandler_timeout_operations_total"

	// QueryHandlerUndecodableMetric counts events a query had to leave out because they could not be decoded.
	QueryHandlerUndecodableMetric = "queryhandler_undecodable_events_total"

	SpanNameQueryHandle = "query.handle"

	StatusCanceled = "canceled"
	StatusTimeout  = "timeout"

	LogAttrQueryType = "query_type"

	LogMsgQueryStarted     = "query handler started"
	LogMsgQueryCompleted   = "query handler completed"
	LogMsgQueryFailed      = "query handler failed"
	LogMsgUndecodableEvent = "event left out of the projection"
)

// QueryRun instruments one execution of a query.
type QueryRun struct {
	observer  eventstore.Observer
	queryType string
	start     time.Time
	span      eventstore.SpanContext
}

// StartQuery starts the span and the timer of a query and logs its start.
func StartQuery(ctx context.Context, observer eventstore.Observer, queryType string) (context.Context, QueryRun) {
	ctx, span := observer.StartSpan(ctx, SpanNameQueryHandle, map[string]string{LogAttrQueryType: queryType})
	observer.LogDebug(ctx, LogMsgQueryStarted, LogAttrQueryType, queryType)

	return ctx, QueryRun{observer: observer, queryType: queryType, start: time.Now(), span: span}
}

// Succeed records a successful query.
func (r QueryRun) Succeed(ctx context.Context) {
	duration := time.Since(r.start)

	r.record(ctx, eventstore.StatusSuccess, duration)
	r.observer.FinishSpan(r.span, eventstore.StatusSuccess, map[string]string{
		eventstore.LogAttrDurationMS: formatDurationMS(duration),
	})
	r.observer.LogDebug(ctx, LogMsgQueryCompleted,
		LogAttrQueryType, r.queryType,
		eventstore.LogAttrDurationMS, eventstore.ToMilliseconds(duration))
}

// Fail records a failed query and returns err unchanged.
func (r QueryRun) Fail(ctx context.Context, err error) error {
	duration := time.Since(r.start)

	status := eventstore.StatusError
	switch {
	case IsCancellationError(err):
		status = StatusCanceled
		r.observer.IncrementCounter(ctx, QueryHandlerCanceledMetric, BuildQueryLabels(r.queryType, status))
	case IsTimeoutError(err):
		status = StatusTimeout
		r.observer.IncrementCounter(ctx, QueryHandlerTimeoutMetric, BuildQueryLabels(r.queryType, status))
	}

	r.record(ctx, status, duration)
	r.observer.FinishSpan(r.span, status, map[string]string{
		eventstore.LogAttrDurationMS: formatDurationMS(duration),
		eventstore.LogAttrError:      err.Error(),
	})
	r.observer.LogError(ctx, LogMsgQueryFailed, err, LogAttrQueryType, r.queryType)

	return err
}

// Undecodable logs and counts the events DomainEventsFrom had to leave out. A nil err is ignored.
func (r QueryRun) Undecodable(ctx context.Context, err error) {
	if err == nil {
		return
	}

	causes := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		causes = joined.Unwrap()
	}

	for _, cause := range causes {
		r.observer.LogWarn(ctx, LogMsgUndecodableEvent, LogAttrQueryType, r.queryType, eventstore.LogAttrError, cause.Error())
		r.observer.IncrementCounter(ctx, QueryHandlerUndecodableMetric, map[string]string{LogAttrQueryType: r.queryType})
	}
}

func (r QueryRun) record(ctx context.Context, status string, duration time.Duration) {
	labels := BuildQueryLabels(r.queryType, status)
	r.observer.RecordDuration(ctx, QueryHandlerDurationMetric, duration, labels)
	r.observer.IncrementCounter(ctx, QueryHandlerCallsMetric, labels)
}

// BuildQueryLabels creates standard metric labels for query operations.
func BuildQueryLabels(queryType, status string) map[string]string {
	return map[string]string{
		LogAttrQueryType:       queryType,
		eventstore.LabelStatus: status,
	}
}

func formatDurationMS(duration time.Duration) string {
	return strconv.FormatFloat(eventstore.ToMilliseconds(duration), 'f', 2, 64)
}

// IsCancellationError checks if an error is due to context cancellation.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError checks if an error is due to context deadline exceeded.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
