package index

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/pos-eventstore-go/eventstore"
)

// Snapshot is a deterministic dump of the index contents, expressed as event ids.
type Snapshot struct {
	Aggregates map[string][]uuid.UUID
	Types      map[string][]uuid.UUID
	Dates      map[eventstore.BusinessDate][]uuid.UUID
	Timeline   []uuid.UUID
}

// Snapshot returns the current index contents. It does not count as a read in Stats.
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snapshot := Snapshot{
		Aggregates: make(map[string][]uuid.UUID, len(idx.byAggregate)),
		Types:      make(map[string][]uuid.UUID, len(idx.byType)),
		Dates:      make(map[eventstore.BusinessDate][]uuid.UUID, len(idx.byDate)),
		Timeline:   idx.ids(idx.timeline),
	}

	for key, positions := range idx.byAggregate {
		snapshot.Aggregates[key] = idx.ids(positions)
	}

	for key, positions := range idx.byType {
		snapshot.Types[key] = idx.ids(positions)
	}

	for key, positions := range idx.byDate {
		snapshot.Dates[key] = idx.ids(positions)
	}

	return snapshot
}

func (idx *Index) ids(positions []position) []uuid.UUID {
	ids := make([]uuid.UUID, len(positions))
	for i, pos := range positions {
		ids[i] = idx.events[pos].ID
	}

	return ids
}
