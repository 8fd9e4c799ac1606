package reporting

import (
	"github.com/AntonStoeckl/pos-eventstore-go/eventstore/cache"
	"github.com/AntonStoeckl/pos-eventstore-go/pos/core"
)

const (
	queryTypeReport   = "BusinessDateReport"
	queryTypeGenerate = "GenerateReport"

	// CacheKindLastReportNumber caches the highest report number in the log.
	CacheKindLastReportNumber cache.Kind = "reporting.last_report_number"

	// DefaultTopItems is how many items a report ranks.
	DefaultTopItems = 5
)

func lastReportNumberKey() cache.Key {
	return cache.GlobalKey(CacheKindLastReportNumber, "")
}

// HandledEventTypes lists the event types the reporting projections fold themselves.
// Sales and payment events are folded by the composed engines.
func HandledEventTypes() []string {
	return []string{core.ReportGeneratedEventType}
}
