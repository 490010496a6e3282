package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMatch_Scenario(t *testing.T) {
	id := uuid.New()
	idx := BuildIndex([]Registrant{{ID: id, VPA: "X@ybl", RouteNo: "R1", CCNo: "CC1"}})
	txns := []Transaction{
		{SNo: "1", CustomerVPA: "x@YBL", Amount: decimal.NewFromInt(100)},
		{SNo: "2", CustomerVPA: "y@ybl", Amount: decimal.NewFromInt(50)},
	}

	got, err := NewMatcher(0, nil).Match(context.Background(), idx, txns, nil)
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if !got[0].IsMatched || got[0].MatchedRegistrantID == nil || *got[0].MatchedRegistrantID != id {
		t.Errorf("txn 1 = %+v, want matched to %s", got[0], id)
	}
	if got[0].RouteNo != "R1" || got[0].CCNo != "CC1" {
		t.Errorf("txn 1 route/cc = %q/%q, want R1/CC1", got[0].RouteNo, got[0].CCNo)
	}
	if got[1].IsMatched || got[1].MatchedRegistrantID != nil {
		t.Errorf("txn 2 = %+v, want unmatched", got[1])
	}

	if txns[0].IsMatched {
		t.Error("input slice was modified")
	}
}

func TestMatch_ClearsStaleMatch(t *testing.T) {
	stale := uuid.New()
	idx := BuildIndex([]Registrant{{ID: uuid.New(), VPA: "a@ybl"}})
	txns := []Transaction{{CustomerVPA: "gone@ybl", IsMatched: true, MatchedRegistrantID: &stale, RouteNo: "R9", CCNo: "C9"}}

	got, err := NewMatcher(0, nil).Match(context.Background(), idx, txns, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].IsMatched || got[0].MatchedRegistrantID != nil || got[0].RouteNo != "" || got[0].CCNo != "" {
		t.Errorf("got %+v, want match fields cleared", got[0])
	}
}

func TestMatch_Idempotent(t *testing.T) {
	regs := make([]Registrant, 50)
	for i := range regs {
		regs[i] = Registrant{ID: uuid.New(), VPA: fmt.Sprintf("p%d@ybl", i)}
	}
	idx := BuildIndex(regs)

	txns := make([]Transaction, 1200)
	for i := range txns {
		txns[i] = Transaction{CustomerVPA: fmt.Sprintf("P%d@YBL", i%80)}
	}

	m := NewMatcher(100, nil)
	first, err := m.Match(context.Background(), idx, txns, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Match(context.Background(), idx, first, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("second run changed match results")
	}
}

func TestMatch_ChunkProgress(t *testing.T) {
	idx := BuildIndex([]Registrant{{ID: uuid.New(), VPA: "a@ybl"}})
	txns := make([]Transaction, 1100)

	var calls [][2]int
	sink := &RecordingSink{}
	_, err := NewMatcher(500, sink).Match(context.Background(), idx, txns, func(p, total int) {
		calls = append(calls, [2]int{p, total})
	})
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]int{{500, 1100}, {1000, 1100}, {1100, 1100}}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("progress calls = %v, want %v", calls, want)
	}
	if len(sink.Events()) != 3 {
		t.Errorf("events = %d, want 3", len(sink.Events()))
	}
}

func TestMatch_EmptyRegistry(t *testing.T) {
	_, err := NewMatcher(0, nil).Match(context.Background(), BuildIndex(nil), []Transaction{{CustomerVPA: "a@ybl"}}, nil)
	if !errors.Is(err, ErrNoRegistryData) {
		t.Errorf("Match() error = %v, want ErrNoRegistryData", err)
	}
}

func TestMatch_Cancelled(t *testing.T) {
	idx := BuildIndex([]Registrant{{ID: uuid.New(), VPA: "a@ybl"}})
	ctx, cancel := context.WithCancel(context.Background())

	processed := 0
	_, err := NewMatcher(10, nil).Match(ctx, idx, make([]Transaction, 100), func(p, _ int) {
		processed = p
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Match() error = %v, want context.Canceled", err)
	}
	if processed != 10 {
		t.Errorf("processed = %d, want 10 (stopped after first chunk)", processed)
	}
}

func TestSummarize(t *testing.T) {
	id := uuid.New()
	txns := []Transaction{
		{Amount: decimal.RequireFromString("100.50"), IsMatched: true, MatchedRegistrantID: &id},
		{Amount: decimal.RequireFromString("20"), IsMatched: true, MatchedRegistrantID: &id},
		{Amount: decimal.RequireFromString("0.25")},
		{Amount: decimal.RequireFromString("9.25")},
	}

	s := Summarize(txns)
	if s.Total != 4 || s.Matched != 2 || s.Unmatched != 2 {
		t.Errorf("counts = %d/%d/%d, want 4/2/2", s.Total, s.Matched, s.Unmatched)
	}
	if s.TotalAmount.String() != "130" {
		t.Errorf("TotalAmount = %s, want 130", s.TotalAmount)
	}
	if s.MatchedAmount.String() != "120.5" {
		t.Errorf("MatchedAmount = %s, want 120.5", s.MatchedAmount)
	}
	if s.UnmatchedAmount.String() != "9.5" {
		t.Errorf("UnmatchedAmount = %s, want 9.5", s.UnmatchedAmount)
	}
	if s.Rate != 0.5 {
		t.Errorf("Rate = %v, want 0.5", s.Rate)
	}
}
