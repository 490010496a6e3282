package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ServiceOptions configures a Service. Zero values fall back to defaults.
type ServiceOptions struct {
	Import            ImportOptions
	DeleteBatchSize   int
	MatchChunkSize    int
	CacheTTL          time.Duration
	FetchPageSize     int
	MaxConcurrentRuns int
	RunMaxWait        time.Duration
}

// Service is the entry point for registry imports, single-record edits,
// bulk deletes and reconciliation. It owns no global state: the store,
// header table and event sink are injected.
type Service struct {
	store    RegistryStore
	headers  *HeaderNormalizer
	events   EventSink
	importer *Importer
	deleter  *Deleter
	matcher  *Matcher
	limiter  *RunLimiter
	cache    *registryCache
	pageSize int
}

// NewService wires a Service around store. A nil headers uses the built-in
// synonym table and a nil events discards progress events.
func NewService(store RegistryStore, headers *HeaderNormalizer, opts ServiceOptions, events EventSink) *Service {
	if headers == nil {
		headers = NewHeaderNormalizer()
	}
	events = sinkOrNop(events)
	if opts.FetchPageSize <= 0 {
		opts.FetchPageSize = 1000
	}

	return &Service{
		store:    store,
		headers:  headers,
		events:   events,
		importer: NewImporter(store, opts.Import, events),
		deleter:  NewDeleter(store, opts.DeleteBatchSize, events),
		matcher:  NewMatcher(opts.MatchChunkSize, events),
		limiter:  NewRunLimiter(opts.MaxConcurrentRuns, opts.RunMaxWait),
		cache:    newRegistryCache(opts.CacheTTL),
		pageSize: opts.FetchPageSize,
	}
}

// Limiter exposes the run limiter for health reporting and shutdown drain.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// ImportRegistrants parses, validates and writes a registrant CSV.
// Structural problems and cancellation are returned as errors; per-row
// rejections and per-batch failures are reported in the result.
func (s *Service) ImportRegistrants(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, runID := ensureRunID(ctx)
	logger := slog.With("run_id", runID)

	file, err := ParseRegistrants(r, s.headers)
	if err != nil {
		logger.WarnContext(ctx, "registrant import rejected", "error", err)
		return nil, err
	}
	s.emitRejections(ctx, runID, KindRegistrant, file.Rejected)

	result, err := s.importer.Import(ctx, file.Accepted)
	if result != nil {
		result.Rejected = file.Rejected
		if result.WrittenCount > 0 {
			s.cache.invalidate()
		}
	}
	if err != nil {
		logger.WarnContext(ctx, "registrant import stopped", "error", err)
		return result, err
	}

	logger.InfoContext(ctx, "registrant import completed",
		"accepted", result.AcceptedCount,
		"rejected", len(result.Rejected),
		"written", result.WrittenCount,
		"conflicts", result.ConflictCount,
		"failed_batches", result.FailedBatches(),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// ImportPreview is the dry-run view of a registrant file.
type ImportPreview struct {
	Accepted   []RegistrantInput `json:"accepted"`
	Rejected   []RowError        `json:"rejected"`
	BatchCount int               `json:"batch_count"`
	OverLimit  bool              `json:"over_limit"` // the import would be refused as too large
}

// PreviewImport parses and validates a registrant CSV without writing.
func (s *Service) PreviewImport(ctx context.Context, r io.Reader) (*ImportPreview, error) {
	file, err := ParseRegistrants(r, s.headers)
	if err != nil {
		return nil, err
	}
	opts := s.importer.opts
	return &ImportPreview{
		Accepted:   file.Accepted,
		Rejected:   file.Rejected,
		BatchCount: len(SplitBatches(file.Accepted, opts.MaxBatchSize)),
		OverLimit:  len(file.Accepted) > opts.MaxRecords,
	}, nil
}

// AddRegistrant validates and creates a single registrant.
func (s *Service) AddRegistrant(ctx context.Context, in RegistrantInput) (Registrant, error) {
	in = cleanInput(in)
	if rerr := ValidateRegistrant(in); rerr != nil {
		return Registrant{}, *rerr
	}

	reg, err := s.store.Create(ctx, in)
	if err != nil {
		return Registrant{}, fmt.Errorf("create registrant: %w", err)
	}
	s.cache.invalidate()
	return reg, nil
}

// UpdateRegistrant validates and replaces the writable fields of id.
func (s *Service) UpdateRegistrant(ctx context.Context, id uuid.UUID, in RegistrantInput) (Registrant, error) {
	in = cleanInput(in)
	if rerr := ValidateRegistrant(in); rerr != nil {
		return Registrant{}, *rerr
	}

	reg, err := s.store.Update(ctx, id, in)
	if err != nil {
		return Registrant{}, fmt.Errorf("update registrant %s: %w", id, err)
	}
	s.cache.invalidate()
	return reg, nil
}

// GetRegistrant returns one registrant.
func (s *Service) GetRegistrant(ctx context.Context, id uuid.UUID) (Registrant, error) {
	return s.store.Get(ctx, id)
}

// ListRegistrants returns a page of registrants and the total count.
func (s *Service) ListRegistrants(ctx context.Context, p Page) ([]Registrant, int64, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return s.store.Fetch(ctx, p)
}

// DeleteRegistrant removes a single registrant.
func (s *Service) DeleteRegistrant(ctx context.Context, id uuid.UUID) error {
	n, err := s.store.Delete(ctx, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("delete registrant %s: %w", id, err)
	}
	if n == 0 {
		return &NotFoundError{Resource: "registrant", ID: id.String()}
	}
	s.cache.invalidate()
	return nil
}

// BulkDelete removes ids in batches and reports per-batch failures.
// Every id must exist: otherwise nothing is deleted and a *NotFoundError
// lists the missing ids. The error return is reserved for failing to start
// the run.
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID, progress ProgressFunc) (*DeleteReport, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, runID := ensureRunID(ctx)

	missing, err := s.deleter.Missing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check registrants: %w", err)
	}
	if len(missing) > 0 {
		notFound := &NotFoundError{Resource: "registrant", IDs: make([]string, len(missing))}
		for i, id := range missing {
			notFound.IDs[i] = id.String()
		}
		slog.WarnContext(ctx, "bulk delete rejected", "run_id", runID, "missing", len(missing))
		return nil, notFound
	}

	report := s.deleter.Delete(ctx, ids, progress)
	if report.DeletedCount > 0 {
		s.cache.invalidate()
	}

	slog.InfoContext(ctx, "bulk delete completed",
		"run_id", runID,
		"requested", report.Requested,
		"deleted", report.DeletedCount,
		"missing", report.MissingCount,
		"failed_batches", len(report.FailedBatches),
		"status", report.Status,
	)
	return report, nil
}

// Reconcile parses a statement CSV and matches it against the registry.
func (s *Service) Reconcile(ctx context.Context, r io.Reader, progress ProgressFunc) (*ReconcileResult, error) {
	ctx, runID := ensureRunID(ctx)

	file, err := ParseTransactions(r, s.headers)
	if err != nil {
		return nil, err
	}
	s.emitRejections(ctx, runID, KindTransaction, file.Rejected)

	registrants, err := s.RegistrySnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	idx := BuildIndex(registrants)

	matched, err := s.matcher.Match(ctx, idx, file.Transactions, progress)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		RunID:         runID,
		Transactions:  matched,
		Rejected:      file.Rejected,
		Summary:       Summarize(matched),
		DuplicateVPAs: idx.Duplicates(),
	}

	slog.InfoContext(ctx, "reconciliation completed",
		"run_id", runID,
		"transactions", result.Summary.Total,
		"matched", result.Summary.Matched,
		"rejected", len(result.Rejected),
		"duplicate_vpas", len(result.DuplicateVPAs),
	)
	return result, nil
}

// RegistrySnapshot returns every registrant, reusing a recent fetch when
// the registry has not changed since.
func (s *Service) RegistrySnapshot(ctx context.Context) ([]Registrant, error) {
	return s.cache.get(ctx, func(ctx context.Context) ([]Registrant, error) {
		return FetchAll(ctx, s.store, s.pageSize)
	})
}

// InvalidateRegistry drops the cached snapshot, for writes made outside the Service.
func (s *Service) InvalidateRegistry() { s.cache.invalidate() }

func (s *Service) emitRejections(ctx context.Context, runID string, kind RecordKind, rejected []RowError) {
	for _, re := range rejected {
		s.events.Emit(ctx, RowRejected{RunID: runID, Kind: kind, Row: re})
	}
}

func cleanInput(in RegistrantInput) RegistrantInput {
	in.VPA = CleanCell(in.VPA)
	in.Phone = CleanCell(in.Phone)
	in.CCNo = CleanCell(in.CCNo)
	in.RouteNo = CleanCell(in.RouteNo)
	in.Name = CleanCell(in.Name)
	return in
}
