package core

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// ConflictPolicy decides how an import treats rows that collide with
// existing registrants.
type ConflictPolicy string

const (
	// PolicyInsertOnly inserts every batch; a collision fails that batch.
	PolicyInsertOnly ConflictPolicy = "insert_only"
	// PolicyUpsertOnKey updates existing rows that match on the conflict key.
	PolicyUpsertOnKey ConflictPolicy = "upsert_on_key"
)

// Import defaults.
const (
	DefaultImportBatchSize = 1000
	DefaultMaxRecords      = 3000
)

// ImportOptions configures an Importer. The conflict key is validated once
// at configuration time and used as-is.
type ImportOptions struct {
	MaxBatchSize int
	MaxRecords   int
	Policy       ConflictPolicy
	ConflictKey  []string
}

// Importer writes validated registrants to the store in sequential batches.
type Importer struct {
	store  RegistryStore
	opts   ImportOptions
	events EventSink
}

// NewImporter returns an Importer. Zero sizes fall back to the defaults.
func NewImporter(store RegistryStore, opts ImportOptions, events EventSink) *Importer {
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = DefaultImportBatchSize
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.Policy == "" {
		opts.Policy = PolicyInsertOnly
	}
	return &Importer{store: store, opts: opts, events: sinkOrNop(events)}
}

// Import writes accepted in batches of at most MaxBatchSize.
//
// More than MaxRecords inputs reject the whole import with a *StructuralError
// before anything is written. A batch the store rejects as a duplicate is
// marked Conflict and counted in ConflictCount; any batch failure leaves later
// batches running. Cancellation is checked between batches and returns the
// partial result together with the context error.
func (im *Importer) Import(ctx context.Context, accepted []RegistrantInput) (*ImportResult, error) {
	ctx, runID := ensureRunID(ctx)
	start := time.Now()

	result := &ImportResult{
		RunID:         runID,
		Accepted:      accepted,
		AcceptedCount: len(accepted),
	}

	if len(accepted) > im.opts.MaxRecords {
		return result, &StructuralError{
			Kind: KindRegistrant,
			Err:  fmt.Errorf("%w: %d accepted, limit is %d", ErrTooManyRecords, len(accepted), im.opts.MaxRecords),
		}
	}

	for i, batch := range SplitBatches(accepted, im.opts.MaxBatchSize) {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("import cancelled before batch %d: %w", i, err)
		}

		outcome := BatchOutcome{Index: i, Size: len(batch)}
		written, err := im.write(ctx, batch)
		switch {
		case err == nil:
			outcome.Written = written
			result.WrittenCount += written
		case IsConflict(err):
			outcome.Conflict = true
			outcome.Err = err
			outcome.Error = FormatUserError(err)
			result.ConflictCount += len(batch)
		default:
			outcome.Err = err
			outcome.Error = FormatUserError(err)
		}
		result.Batches = append(result.Batches, outcome)

		im.events.Emit(ctx, BatchCompleted{
			RunID:    runID,
			Index:    i,
			Size:     len(batch),
			Written:  outcome.Written,
			Conflict: outcome.Conflict,
			Err:      outcome.Err,
		})
		runtime.Gosched()
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (im *Importer) write(ctx context.Context, batch []RegistrantInput) (int, error) {
	if im.opts.Policy == PolicyUpsertOnKey {
		return im.store.Upsert(ctx, batch, im.opts.ConflictKey)
	}
	return im.store.Insert(ctx, batch)
}
