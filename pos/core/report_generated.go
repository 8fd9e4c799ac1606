package core

import (
	"strconv"
	"time"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// ReportGeneratedEventType is the event type identifier.
const ReportGeneratedEventType = "report.generated"

// ReportGenerated records that an end-of-day report got its number.
// Report numbers are consecutive over the whole log, so the next number is derived from these events.
type ReportGenerated struct {
	ReportNumber int64                   `json:"reportNumber"`
	BusinessDate eventstore.BusinessDate `json:"businessDate"`
	OccurredAt   OccurredAt              `json:"-"`
}

// BuildReportGenerated creates a new ReportGenerated event.
func BuildReportGenerated(reportNumber int64, businessDate eventstore.BusinessDate, occurredAt time.Time) ReportGenerated {
	return ReportGenerated{
		ReportNumber: reportNumber,
		BusinessDate: businessDate,
		OccurredAt:   ToOccurredAt(occurredAt),
	}
}

// EventType returns the event type identifier.
func (e ReportGenerated) EventType() string {
	return ReportGeneratedEventType
}

// AggregateRef returns the report aggregate, identified by its number.
func (e ReportGenerated) AggregateRef() eventstore.Aggregate {
	return eventstore.Aggregate{ID: ReportAggregateID(e.ReportNumber), Type: AggregateTypeReport}
}

// HasOccurredAt returns when this event occurred.
func (e ReportGenerated) HasOccurredAt() time.Time {
	return e.OccurredAt
}

// ReportAggregateID builds the aggregate id of a numbered report.
func ReportAggregateID(reportNumber int64) string {
	return "report-" + strconv.FormatInt(reportNumber, 10)
}
