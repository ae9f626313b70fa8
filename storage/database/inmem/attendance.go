package inmemdb

import (
	"context"
	"sort"

	"github.com/edutrack/attendance/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) CreateBatch(
	_ context.Context,
	batch attendance.Batch,
	records []attendance.Record,
	entry attendance.HistoryEntry,
) (attendance.Batch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	batch.RecordIDs = make([]string, 0, len(records))
	for _, rec := range records {
		batch.RecordIDs = append(batch.RecordIDs, rec.ID)
	}

	repo.db.seq++
	repo.db.batches[batch.ID] = batchRow{batch: batch, seq: repo.db.seq}
	repo.db.records[batch.ID] = append([]attendance.Record(nil), records...)
	repo.db.history = append(repo.db.history, entry)
	return batch, nil
}

func (repo *attendanceRepository) GetBatch(_ context.Context, id string) (attendance.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	row, ok := repo.db.batches[id]
	if !ok {
		return attendance.Batch{}, attendance.ErrBatchNotFound
	}
	return row.batch, nil
}

func (repo *attendanceRepository) GetBatchRecords(_ context.Context, batchID string) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]attendance.Record(nil), repo.db.records[batchID]...), nil
}

func (repo *attendanceRepository) ListBatches(_ context.Context) ([]attendance.Batch, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]batchRow, 0, len(repo.db.batches))
	for _, row := range repo.db.batches {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].batch.UploadedAt.Equal(rows[j].batch.UploadedAt) {
			return rows[i].seq > rows[j].seq
		}
		return rows[i].batch.UploadedAt.After(rows[j].batch.UploadedAt)
	})

	batches := make([]attendance.Batch, 0, len(rows))
	for _, row := range rows {
		batches = append(batches, row.batch)
	}
	return batches, nil
}

func (repo *attendanceRepository) ListHistory(_ context.Context) ([]attendance.HistoryEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]attendance.HistoryEntry, 0, len(repo.db.history))
	// history is append-only; newest last in storage, newest first out
	for i := len(repo.db.history) - 1; i >= 0; i-- {
		entry := repo.db.history[i]
		if row, ok := repo.db.batches[entry.BatchID]; ok {
			entry.BatchClassName = row.batch.ClassName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (repo *attendanceRepository) LatestBatchID(ctx context.Context) (string, error) {
	batches, err := repo.ListBatches(ctx)
	if err != nil || len(batches) == 0 {
		return "", err
	}
	return batches[0].ID, nil
}
