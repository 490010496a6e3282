package core

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
)

// DefaultDeleteBatchSize keeps each delete call under the store's filter limit.
const DefaultDeleteBatchSize = 1000

// Deleter removes registrants in sequential batches and accounts for every
// requested id.
type Deleter struct {
	store     RegistryStore
	batchSize int
	events    EventSink
}

// NewDeleter returns a Deleter. A non-positive batchSize means the default.
func NewDeleter(store RegistryStore, batchSize int, events EventSink) *Deleter {
	if batchSize <= 0 {
		batchSize = DefaultDeleteBatchSize
	}
	return &Deleter{store: store, batchSize: batchSize, events: sinkOrNop(events)}
}

// Delete removes ids. Duplicate ids are dropped, keeping first-occurrence
// order, before batching.
//
// A failed batch is recorded with its ids and the run continues.
// DeletedCount is the number of rows the store actually removed; ids of a
// successful batch that were already gone count as MissingCount, so
// DeletedCount, MissingCount and the ids in FailedBatches always add up to
// Requested. Once ctx is cancelled the remaining batches are recorded as
// failed with the context error.
func (d *Deleter) Delete(ctx context.Context, ids []uuid.UUID, progress ProgressFunc) *DeleteReport {
	ctx, runID := ensureRunID(ctx)

	unique := dedupeIDs(ids)
	batches := SplitBatches(unique, d.batchSize)
	report := &DeleteReport{
		RunID:      runID,
		Requested:  len(unique),
		BatchCount: len(batches),
	}

	for i, batch := range batches {
		var removed int64
		err := ctx.Err()
		if err != nil {
			err = fmt.Errorf("delete cancelled before batch %d: %w", i, err)
		} else {
			removed, err = d.store.Delete(ctx, batch)
		}

		if err != nil {
			report.FailedBatches = append(report.FailedBatches, FailedBatch{
				BatchIndex: i,
				IDs:        batch,
				Err:        err,
				Error:      FormatUserError(err),
			})
		} else {
			n := min(int(removed), len(batch))
			report.DeletedCount += n
			report.MissingCount += len(batch) - n
		}

		percent := 100
		if report.Requested > 0 {
			percent = report.DeletedCount * 100 / report.Requested
		}
		if progress != nil {
			progress(report.DeletedCount, report.Requested)
		}
		d.events.Emit(ctx, DeleteProgress{
			RunID:      runID,
			BatchIndex: i,
			Deleted:    report.DeletedCount,
			Requested:  report.Requested,
			Percent:    percent,
			Err:        err,
		})
		runtime.Gosched()
	}

	report.Status = deleteStatus(report)
	return report
}

// Missing returns the ids that are not stored, in first-occurrence order.
// Lookups are batched like deletes so each stays under the store's filter limit.
func (d *Deleter) Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	unique := dedupeIDs(ids)
	found := make(map[uuid.UUID]struct{}, len(unique))
	for i, batch := range SplitBatches(unique, d.batchSize) {
		existing, err := d.store.Existing(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("lookup batch %d: %w", i, err)
		}
		for _, id := range existing {
			found[id] = struct{}{}
		}
	}

	var missing []uuid.UUID
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func deleteStatus(r *DeleteReport) DeleteStatus {
	switch {
	case len(r.FailedBatches) == 0 && r.MissingCount == 0:
		return DeleteSuccess
	case r.DeletedCount > 0:
		return DeletePartialSuccess
	default:
		return DeleteFailure
	}
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
