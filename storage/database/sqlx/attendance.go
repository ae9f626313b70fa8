package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/edutrack/attendance/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sql.DB) attendance.Repository {
	return &attendanceRepository{db: sqlx.NewDb(db, "postgres")}
}

// CreateBatch performs the header insert, record bulk-insert and history
// insert in one transaction so a mid-write failure cannot leave an orphaned
// batch behind.
func (repo *attendanceRepository) CreateBatch(
	ctx context.Context,
	batch attendance.Batch,
	records []attendance.Record,
	entry attendance.HistoryEntry,
) (attendance.Batch, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Batch{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO upload_batch (id, class_name, total_students, total_defaulters, average_attendance, uploaded_by, uploaded_at)
		VALUES (:id, :class_name, :total_students, :total_defaulters, :average_attendance, :uploaded_by, :uploaded_at)`,
		batch,
	)
	if err != nil {
		return attendance.Batch{}, errors.Wrap(err, "inserting batch")
	}

	if len(records) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO attendance_record (id, batch_id, class_name, roll_number, name, gender, attendance_days,
			                               total_days, attendance_percentage, student_email, parent_email,
			                               is_defaulter, pos, created_at)
			VALUES (:id, :batch_id, :class_name, :roll_number, :name, :gender, :attendance_days,
			        :total_days, :attendance_percentage, :student_email, :parent_email,
			        :is_defaulter, :pos, :created_at)`,
			records,
		)
		if err != nil {
			return attendance.Batch{}, errors.Wrap(err, "inserting records")
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history (id, batch_id, defaulter_count, defaulter_ids, uploaded_at, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.BatchID, entry.DefaulterCount, pq.Array(entry.DefaulterIDs), entry.UploadedAt, entry.UploadedBy,
	)
	if err != nil {
		return attendance.Batch{}, errors.Wrap(err, "inserting history entry")
	}

	if err = tx.Commit(); err != nil {
		return attendance.Batch{}, errors.Wrap(err, "committing transaction")
	}

	batch.RecordIDs = make([]string, 0, len(records))
	for _, rec := range records {
		batch.RecordIDs = append(batch.RecordIDs, rec.ID)
	}
	return batch, nil
}

func (repo *attendanceRepository) GetBatch(ctx context.Context, id string) (attendance.Batch, error) {
	var batch attendance.Batch
	err := repo.db.GetContext(ctx, &batch, `SELECT * FROM upload_batch WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return attendance.Batch{}, attendance.ErrBatchNotFound
	}
	if err != nil {
		return attendance.Batch{}, errors.Wrap(err, "selecting batch")
	}

	err = repo.db.SelectContext(ctx, &batch.RecordIDs,
		`SELECT id FROM attendance_record WHERE batch_id = $1 ORDER BY pos`, id)
	if err != nil {
		return attendance.Batch{}, errors.Wrap(err, "selecting batch record ids")
	}
	return batch, nil
}

func (repo *attendanceRepository) GetBatchRecords(ctx context.Context, batchID string) ([]attendance.Record, error) {
	records := make([]attendance.Record, 0)
	err := repo.db.SelectContext(ctx, &records,
		`SELECT * FROM attendance_record WHERE batch_id = $1 ORDER BY pos`, batchID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting batch records")
	}
	return records, nil
}

func (repo *attendanceRepository) ListBatches(ctx context.Context) ([]attendance.Batch, error) {
	batches := make([]attendance.Batch, 0)
	err := repo.db.SelectContext(ctx, &batches, `SELECT * FROM upload_batch ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting batches")
	}
	return batches, nil
}

func (repo *attendanceRepository) ListHistory(ctx context.Context) ([]attendance.HistoryEntry, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT h.id, h.batch_id, COALESCE(b.class_name, '') AS batch_class_name,
		       h.defaulter_count, h.defaulter_ids, h.uploaded_at, h.uploaded_by
		FROM history h
		LEFT JOIN upload_batch b ON b.id = h.batch_id
		ORDER BY h.uploaded_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting history")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]attendance.HistoryEntry, 0)
	for rows.Next() {
		var entry attendance.HistoryEntry
		var ids pq.StringArray
		err = rows.Scan(&entry.ID, &entry.BatchID, &entry.BatchClassName,
			&entry.DefaulterCount, &ids, &entry.UploadedAt, &entry.UploadedBy)
		if err != nil {
			return nil, errors.Wrap(err, "scanning history entry")
		}
		entry.DefaulterIDs = ids
		entries = append(entries, entry)
	}
	return entries, errors.Wrap(rows.Err(), "iterating history")
}

func (repo *attendanceRepository) LatestBatchID(ctx context.Context) (string, error) {
	var id string
	err := repo.db.GetContext(ctx, &id, `SELECT id FROM upload_batch ORDER BY uploaded_at DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "selecting latest batch")
	}
	return id, nil
}
