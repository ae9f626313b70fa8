package inmemdb

import (
	"sync"

	"github.com/edutrack/attendance/core/attendance"
)

// DB is an in-memory store used for tests and db-less local runs.
type DB struct {
	mutex   sync.RWMutex
	seq     int
	batches map[string]batchRow
	records map[string][]attendance.Record // keyed by batch id, input order
	history []attendance.HistoryEntry
}

type batchRow struct {
	batch attendance.Batch
	seq   int // insertion order, tie-breaker for equal timestamps
}

func Open() *DB {
	return &DB{
		batches: make(map[string]batchRow),
		records: make(map[string][]attendance.Record),
	}
}
