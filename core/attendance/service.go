package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/edutrack/attendance/core"
)

var ErrBatchNotFound = errors.New("batch not found")

type (
	// Repository persists batches, their records and the upload history.
	// CreateBatch must perform the header insert, the record bulk-insert and
	// the history insert as one logical unit.
	Repository interface {
		CreateBatch(ctx context.Context, batch Batch, records []Record, entry HistoryEntry) (Batch, error)
		GetBatch(ctx context.Context, id string) (Batch, error)
		// GetBatchRecords returns the batch's records in input order.
		GetBatchRecords(ctx context.Context, batchID string) ([]Record, error)
		// ListBatches returns all batches ordered by UploadedAt descending.
		ListBatches(ctx context.Context) ([]Batch, error)
		// ListHistory returns history entries joined with the parent batch's
		// class name, ordered by UploadedAt descending.
		ListHistory(ctx context.Context) ([]HistoryEntry, error)
		// LatestBatchID returns the most recent batch id, or "" when none exist.
		LatestBatchID(ctx context.Context) (string, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Upload validates, classifies and persists one uploaded row set.
// Validation rejects empty uploads before any storage call is made.
func (svc *Service) Upload(ctx context.Context, nb NewBatch) (Batch, error) {
	if len(nb.Records) == 0 {
		return Batch{}, core.NewValidationError(errors.New("no records provided"))
	}

	batch, records, err := Classify(nb.Records, nb.ClassName, nb.UploadedBy)
	if err != nil {
		return Batch{}, errors.Wrap(err, "classifying records")
	}

	now := time.Now().UTC()
	batch.ID = uuid.NewString()
	batch.UploadedAt = now

	defaulterIDs := make([]string, 0, batch.TotalDefaulters)
	for i := range records {
		records[i].ID = uuid.NewString()
		records[i].BatchID = batch.ID
		records[i].CreatedAt = now
		if records[i].IsDefaulter {
			defaulterIDs = append(defaulterIDs, records[i].ID)
		}
	}

	entry := HistoryEntry{
		ID:             uuid.NewString(),
		BatchID:        batch.ID,
		DefaulterCount: len(defaulterIDs),
		DefaulterIDs:   defaulterIDs,
		UploadedAt:     now,
		UploadedBy:     batch.UploadedBy,
	}

	created, err := svc.repo.CreateBatch(ctx, batch, records, entry)
	if err != nil {
		return Batch{}, errors.Wrap(err, "creating batch")
	}
	svc.logger.Info("batch created: " + created.ID)
	return created, nil
}

func (svc *Service) GetBatch(ctx context.Context, id string) (Batch, error) {
	return svc.repo.GetBatch(ctx, id)
}

func (svc *Service) ListBatches(ctx context.Context) ([]Batch, error) {
	return svc.repo.ListBatches(ctx)
}

func (svc *Service) ListHistory(ctx context.Context) ([]HistoryEntry, error) {
	return svc.repo.ListHistory(ctx)
}

func (svc *Service) LatestBatchID(ctx context.Context) (string, error) {
	return svc.repo.LatestBatchID(ctx)
}
