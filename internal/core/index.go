package core

import "sort"

// RegistryIndex maps normalized VPAs to registrants. It is read-only after
// BuildIndex returns and safe for concurrent lookups.
type RegistryIndex struct {
	byVPA      map[string]Registrant
	duplicates map[string]int
}

// BuildIndex indexes registrants by NormalizeVPA(VPA). Registrants with an
// empty VPA are skipped.
//
// When several registrants share a normalized VPA the one with the latest
// UpdatedAt wins, and equal timestamps fall back to the greatest ID string.
// The result therefore does not depend on input order.
func BuildIndex(registrants []Registrant) *RegistryIndex {
	idx := &RegistryIndex{
		byVPA:      make(map[string]Registrant, len(registrants)),
		duplicates: make(map[string]int),
	}

	for _, r := range registrants {
		key := NormalizeVPA(r.VPA)
		if key == "" {
			continue
		}
		cur, exists := idx.byVPA[key]
		if !exists {
			idx.byVPA[key] = r
			continue
		}
		if idx.duplicates[key] == 0 {
			idx.duplicates[key] = 1
		}
		idx.duplicates[key]++
		if preferRegistrant(r, cur) {
			idx.byVPA[key] = r
		}
	}
	return idx
}

// preferRegistrant reports whether a should replace b for the same VPA.
func preferRegistrant(a, b Registrant) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// Lookup returns the registrant holding vpa. vpa is normalized first.
func (idx *RegistryIndex) Lookup(vpa string) (Registrant, bool) {
	r, ok := idx.byVPA[NormalizeVPA(vpa)]
	return r, ok
}

// Len returns the number of distinct normalized VPAs.
func (idx *RegistryIndex) Len() int { return len(idx.byVPA) }

// Duplicates returns the normalized VPAs held by more than one registrant,
// with their holder counts, sorted by VPA.
func (idx *RegistryIndex) Duplicates() []DuplicateVPA {
	out := make([]DuplicateVPA, 0, len(idx.duplicates))
	for vpa, n := range idx.duplicates {
		out = append(out, DuplicateVPA{VPA: vpa, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VPA < out[j].VPA })
	return out
}

// DuplicateVPA is a VPA shared by Count registrants.
type DuplicateVPA struct {
	VPA   string `json:"vpa"`
	Count int    `json:"count"`
}
