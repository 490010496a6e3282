package core

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shopspring/decimal"
)

// DefaultMatchChunkSize is the number of transactions matched between
// progress reports and yield points.
const DefaultMatchChunkSize = 500

// Matcher matches statement transactions to registrants by VPA.
type Matcher struct {
	ChunkSize int
	Events    EventSink
}

// NewMatcher returns a Matcher with the given chunk size (0 means default).
func NewMatcher(chunkSize int, events EventSink) *Matcher {
	if chunkSize <= 0 {
		chunkSize = DefaultMatchChunkSize
	}
	return &Matcher{ChunkSize: chunkSize, Events: events}
}

// Match returns a new slice with every transaction's match fields set from
// idx. txns is not modified. A hit sets IsMatched, MatchedRegistrantID,
// RouteNo and CCNo; a miss clears them, so matching is idempotent.
//
// Work proceeds in chunks. After each chunk progress is reported, the
// goroutine yields and ctx is checked; a cancelled run returns ctx's error
// and no result. An empty index returns ErrNoRegistryData.
func (m *Matcher) Match(ctx context.Context, idx *RegistryIndex, txns []Transaction, progress ProgressFunc) ([]Transaction, error) {
	if idx == nil || idx.Len() == 0 {
		return nil, ErrNoRegistryData
	}

	chunkSize := m.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultMatchChunkSize
	}
	events := sinkOrNop(m.Events)
	runID := RunIDFromContext(ctx)

	out := make([]Transaction, len(txns))
	matched := 0
	for start := 0; start < len(txns); start += chunkSize {
		end := min(start+chunkSize, len(txns))
		for i := start; i < end; i++ {
			out[i] = matchOne(idx, txns[i])
			if out[i].IsMatched {
				matched++
			}
		}

		if progress != nil {
			progress(end, len(txns))
		}
		events.Emit(ctx, MatchProgress{RunID: runID, Processed: end, Total: len(txns), Matched: matched})

		runtime.Gosched()
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("matching cancelled after %d of %d: %w", end, len(txns), err)
		}
	}
	return out, nil
}

func matchOne(idx *RegistryIndex, t Transaction) Transaction {
	r, ok := idx.Lookup(t.CustomerVPA)
	if !ok {
		t.IsMatched = false
		t.MatchedRegistrantID = nil
		t.RouteNo = ""
		t.CCNo = ""
		return t
	}
	id := r.ID
	t.IsMatched = true
	t.MatchedRegistrantID = &id
	t.RouteNo = r.RouteNo
	t.CCNo = r.CCNo
	return t
}

// Summarize totals a matched transaction set.
func Summarize(txns []Transaction) MatchSummary {
	s := MatchSummary{
		Total:           len(txns),
		TotalAmount:     decimal.Zero,
		MatchedAmount:   decimal.Zero,
		UnmatchedAmount: decimal.Zero,
	}
	for _, t := range txns {
		s.TotalAmount = s.TotalAmount.Add(t.Amount)
		if t.IsMatched {
			s.Matched++
			s.MatchedAmount = s.MatchedAmount.Add(t.Amount)
		} else {
			s.Unmatched++
			s.UnmatchedAmount = s.UnmatchedAmount.Add(t.Amount)
		}
	}
	if s.Total > 0 {
		s.Rate = float64(s.Matched) / float64(s.Total)
	}
	return s
}
