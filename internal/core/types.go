package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordKind identifies which kind of file is being read.
type RecordKind string

const (
	KindRegistrant  RecordKind = "registrant"
	KindTransaction RecordKind = "transaction"
)

// Canonical field names. Header normalization maps user headers onto these.
const (
	FieldID      = "id"
	FieldVPA     = "vpa"
	FieldPhone   = "phone"
	FieldCCNo    = "cc_no"
	FieldRouteNo = "route_no"
	FieldName    = "name"

	FieldSNo             = "sno"
	FieldTransactionDate = "transaction_date"
	FieldAmount          = "amount"
	FieldReferenceNumber = "reference_number"
	FieldCustomerVPA     = "customer_vpa"
)

// Registrant is a registered payee stored in the registry.
type Registrant struct {
	ID         uuid.UUID `json:"id"`
	VPA        string    `json:"vpa"`
	Phone      string    `json:"phone,omitempty"`
	CCNo       string    `json:"cc_no,omitempty"`
	RouteNo    string    `json:"route_no,omitempty"`
	Name       string    `json:"name,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RegistrantInput is the writable part of a registrant.
// The store assigns timestamps, and the ID too when it is nil.
type RegistrantInput struct {
	ID      *uuid.UUID `json:"id,omitempty"` // from an import's id column
	VPA     string     `json:"vpa"`
	Phone   string     `json:"phone,omitempty"`
	CCNo    string     `json:"cc_no,omitempty"`
	RouteNo string     `json:"route_no,omitempty"`
	Name    string     `json:"name,omitempty"`
}

// Transaction is one line of a bank statement being reconciled.
type Transaction struct {
	SNo             string          `json:"sno"`
	TransactionDate string          `json:"transaction_date,omitempty"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	CustomerVPA     string          `json:"customer_vpa"`
	Amount          decimal.Decimal `json:"amount"`

	IsMatched           bool       `json:"is_matched"`
	MatchedRegistrantID *uuid.UUID `json:"matched_registrant_id,omitempty"`
	RouteNo             string     `json:"route_no,omitempty"`
	CCNo                string     `json:"cc_no,omitempty"`
}

// BatchOutcome records what happened to one import batch.
type BatchOutcome struct {
	Index    int    `json:"index"`
	Size     int    `json:"size"`
	Written  int    `json:"written"`
	Conflict bool   `json:"conflict,omitempty"` // store reported a duplicate entry
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// ImportResult is the outcome of a bulk registrant import.
type ImportResult struct {
	RunID         string            `json:"run_id"`
	Accepted      []RegistrantInput `json:"-"`
	AcceptedCount int               `json:"accepted_count"`
	Rejected      []RowError        `json:"rejected"`
	WrittenCount  int               `json:"written_count"`
	ConflictCount int               `json:"conflict_count"`
	Batches       []BatchOutcome    `json:"batches"`
	Duration      time.Duration     `json:"duration_ns"`
}

// FailedBatches returns the number of batches that did not write.
func (r *ImportResult) FailedBatches() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err != nil {
			n++
		}
	}
	return n
}

// Err returns a *PartialBatchFailure when any batch failed, nil otherwise.
func (r *ImportResult) Err() error {
	failed := r.FailedBatches()
	if failed == 0 {
		return nil
	}
	return &PartialBatchFailure{Op: "import", Failed: failed, Total: len(r.Batches)}
}

// DeleteStatus summarises a bulk delete.
type DeleteStatus string

const (
	DeleteSuccess        DeleteStatus = "success"
	DeletePartialSuccess DeleteStatus = "partial_success"
	DeleteFailure        DeleteStatus = "failure"
)

// FailedBatch is a delete batch the store did not accept.
type FailedBatch struct {
	BatchIndex int         `json:"batch_index"`
	IDs        []uuid.UUID `json:"ids"`
	Err        error       `json:"-"`
	Error      string      `json:"error"`
}

// DeleteReport is the outcome of a bulk delete.
type DeleteReport struct {
	RunID         string        `json:"run_id"`
	Requested     int           `json:"requested"`
	DeletedCount  int           `json:"deleted_count"`
	MissingCount  int           `json:"missing_count"` // ids of successful batches that were already gone
	BatchCount    int           `json:"batch_count"`
	FailedBatches []FailedBatch `json:"failed_batches"`
	Status        DeleteStatus  `json:"status"`
}

// FailedIDs returns the number of ids carried by failed batches.
func (r *DeleteReport) FailedIDs() int {
	n := 0
	for _, fb := range r.FailedBatches {
		n += len(fb.IDs)
	}
	return n
}

// Err returns a *PartialBatchFailure unless every batch succeeded.
func (r *DeleteReport) Err() error {
	if len(r.FailedBatches) == 0 {
		return nil
	}
	return &PartialBatchFailure{
		Op:     "delete",
		Failed: len(r.FailedBatches),
		Total:  r.BatchCount,
	}
}

// MatchSummary aggregates a reconciliation run.
type MatchSummary struct {
	Total           int             `json:"total"`
	Matched         int             `json:"matched"`
	Unmatched       int             `json:"unmatched"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
	Rate            float64         `json:"match_rate"`
}

// ReconcileResult is returned by Service.Reconcile.
type ReconcileResult struct {
	RunID         string         `json:"run_id"`
	Transactions  []Transaction  `json:"transactions"`
	Rejected      []RowError     `json:"rejected"`
	Summary       MatchSummary   `json:"summary"`
	DuplicateVPAs []DuplicateVPA `json:"duplicate_vpas"`
}

// Page selects a window of registrants.
type Page struct {
	Limit  int
	Offset int
	Search string // case-insensitive substring over vpa, name and phone
}

// ProgressFunc receives (processed, total) after each unit of work.
type ProgressFunc func(processed, total int)
