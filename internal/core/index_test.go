package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBuildIndex_NormalizesKeys(t *testing.T) {
	id := uuid.New()
	idx := BuildIndex([]Registrant{{ID: id, VPA: " X@YBL "}})

	for _, q := range []string{"x@ybl", "X@ybl", "  x@YBL"} {
		r, ok := idx.Lookup(q)
		if !ok || r.ID != id {
			t.Errorf("Lookup(%q) = %v, %v; want %s", q, r.ID, ok, id)
		}
	}
	if _, ok := idx.Lookup("y@ybl"); ok {
		t.Error("Lookup(y@ybl) should miss")
	}
}

func TestBuildIndex_SkipsEmptyVPA(t *testing.T) {
	idx := BuildIndex([]Registrant{{ID: uuid.New(), VPA: "  "}})
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
}

func TestBuildIndex_TieBreakIsOrderIndependent(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	older := Registrant{ID: uuid.MustParse("ffffffff-0000-0000-0000-000000000000"), VPA: "dup@ybl", UpdatedAt: base}
	newer := Registrant{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), VPA: "DUP@ybl", UpdatedAt: base.Add(time.Hour)}
	sameTimeLow := Registrant{ID: uuid.MustParse("10000000-0000-0000-0000-000000000000"), VPA: "same@ybl", UpdatedAt: base}
	sameTimeHigh := Registrant{ID: uuid.MustParse("20000000-0000-0000-0000-000000000000"), VPA: "same@ybl", UpdatedAt: base}

	orders := [][]Registrant{
		{older, newer, sameTimeLow, sameTimeHigh},
		{sameTimeHigh, newer, sameTimeLow, older},
	}
	for i, regs := range orders {
		idx := BuildIndex(regs)

		if r, _ := idx.Lookup("dup@ybl"); r.ID != newer.ID {
			t.Errorf("order %d: dup@ybl -> %s, want most recently updated %s", i, r.ID, newer.ID)
		}
		if r, _ := idx.Lookup("same@ybl"); r.ID != sameTimeHigh.ID {
			t.Errorf("order %d: same@ybl -> %s, want greatest id %s", i, r.ID, sameTimeHigh.ID)
		}

		dups := idx.Duplicates()
		if len(dups) != 2 || dups[0].VPA != "dup@ybl" || dups[0].Count != 2 {
			t.Errorf("order %d: Duplicates() = %+v", i, dups)
		}
	}
}
