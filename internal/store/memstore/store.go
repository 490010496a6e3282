// Package memstore is an in-process registry store for local runs and tests.
// It enforces the same uniqueness rules and limits as the postgres store.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/google/uuid"
)

const (
	constraintVPA = "registrants_vpa_key"
	constraintID  = "registrants_pkey"
)

// Options configures a Store.
type Options struct {
	PageLimit   int
	FilterLimit int

	// Now stamps inserted_at and updated_at. Defaults to time.Now.
	Now func() time.Time

	// WriteFault, when set, is consulted before every Insert or Upsert call
	// with the 1-based call number. A non-nil result fails that call.
	WriteFault func(call int, in []core.RegistrantInput) error

	// DeleteFault is the Delete counterpart of WriteFault.
	DeleteFault func(call int, ids []uuid.UUID) error
}

// Store keeps registrants in a map guarded by a mutex.
type Store struct {
	opts Options

	mu         sync.Mutex
	rows       map[uuid.UUID]core.Registrant
	seq        map[uuid.UUID]int64 // insertion order
	next       int64
	writeCalls int
	delCalls   int
}

var _ core.RegistryStore = (*Store)(nil)

// New creates an empty store.
func New(opts Options) *Store {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 1000
	}
	if opts.FilterLimit <= 0 {
		opts.FilterLimit = 1000
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		opts: opts,
		rows: make(map[uuid.UUID]core.Registrant),
		seq:  make(map[uuid.UUID]int64),
	}
}

// Len returns the number of stored registrants.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Store) Create(ctx context.Context, in core.RegistrantInput) (core.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return core.Registrant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.newRow(in)
	if err := s.checkUnique(r, uuid.Nil); err != nil {
		return core.Registrant{}, err
	}
	s.put(r)
	return r, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (core.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return core.Registrant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return core.Registrant{}, &core.NotFoundError{Resource: "registrant", ID: id.String()}
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, in core.RegistrantInput) (core.Registrant, error) {
	if err := ctx.Err(); err != nil {
		return core.Registrant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok {
		return core.Registrant{}, &core.NotFoundError{Resource: "registrant", ID: id.String()}
	}
	apply(&r, in)
	r.UpdatedAt = s.opts.Now()
	if err := s.checkUnique(r, id); err != nil {
		return core.Registrant{}, err
	}
	s.rows[id] = r
	return r, nil
}

// Insert stages the batch on a copy and swaps it in only if every row fits.
func (s *Store) Insert(ctx context.Context, in []core.RegistrantInput) (int, error) {
	return s.write(ctx, in, nil)
}

func (s *Store) Upsert(ctx context.Context, in []core.RegistrantInput, conflictKey []string) (int, error) {
	key := strings.Join(conflictKey, ",")
	switch key {
	case "vpa", "phone,vpa", "id":
	default:
		return 0, fmt.Errorf("unsupported conflict key %q", key)
	}
	return s.write(ctx, in, conflictKey)
}

func (s *Store) write(ctx context.Context, in []core.RegistrantInput, conflictKey []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeCalls++
	if s.opts.WriteFault != nil {
		if err := s.opts.WriteFault(s.writeCalls, in); err != nil {
			return 0, err
		}
	}

	staged := s.clone()
	for i, r := range in {
		if conflictKey != nil {
			if id, ok := staged.find(r, conflictKey); ok {
				row := staged.rows[id]
				apply(&row, r)
				row.UpdatedAt = s.opts.Now()
				if err := staged.checkUnique(row, id); err != nil {
					return 0, fmt.Errorf("record %d: %w", i+1, err)
				}
				staged.rows[id] = row
				continue
			}
		}

		row := staged.newRow(r)
		if err := staged.checkUnique(row, uuid.Nil); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		staged.put(row)
	}

	s.rows, s.seq, s.next = staged.rows, staged.seq, staged.next
	return len(in), nil
}

// Fetch orders by insertion, matching the postgres store.
func (s *Store) Fetch(ctx context.Context, p core.Page) ([]core.Registrant, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(p.Search))
	matched := make([]core.Registrant, 0, len(s.rows))
	for _, r := range s.rows {
		if search == "" || matches(r, search) {
			matched = append(matched, r)
		}
	}
	slices.SortFunc(matched, func(a, b core.Registrant) int {
		return cmp.Compare(s.seq[a.ID], s.seq[b.ID])
	})

	limit := p.Limit
	if limit <= 0 || limit > s.opts.PageLimit {
		limit = s.opts.PageLimit
	}
	offset := min(max(p.Offset, 0), len(matched))
	end := min(offset+limit, len(matched))

	return slices.Clone(matched[offset:end]), int64(len(matched)), nil
}

// Existing returns the ids that are stored.
func (s *Store) Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) > s.opts.FilterLimit {
		return nil, fmt.Errorf("lookup filter too large: %d ids exceeds limit of %d", len(ids), s.opts.FilterLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (s *Store) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(ids) > s.opts.FilterLimit {
		return 0, fmt.Errorf("delete filter too large: %d ids exceeds limit of %d", len(ids), s.opts.FilterLimit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.delCalls++
	if s.opts.DeleteFault != nil {
		if err := s.opts.DeleteFault(s.delCalls, ids); err != nil {
			return 0, err
		}
	}

	var n int64
	for _, id := range ids {
		if _, ok := s.rows[id]; ok {
			delete(s.rows, id)
			delete(s.seq, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) newRow(in core.RegistrantInput) core.Registrant {
	now := s.opts.Now()
	r := core.Registrant{ID: uuid.New(), InsertedAt: now, UpdatedAt: now}
	if in.ID != nil {
		r.ID = *in.ID
	}
	apply(&r, in)
	return r
}

func (s *Store) put(r core.Registrant) {
	s.next++
	s.rows[r.ID] = r
	s.seq[r.ID] = s.next
}

// checkUnique reports a conflict if r collides with any row other than self.
// A unique vpa implies a unique (phone, vpa), so only vpa and id are checked.
func (s *Store) checkUnique(r core.Registrant, self uuid.UUID) error {
	if self == uuid.Nil {
		if _, ok := s.rows[r.ID]; ok {
			return &core.ConflictError{Constraint: constraintID}
		}
	}
	for id, other := range s.rows {
		if id == self {
			continue
		}
		if other.VPA == r.VPA {
			return &core.ConflictError{Constraint: constraintVPA}
		}
	}
	return nil
}

// find locates the row an upsert should update. A blank phone never matches,
// as NULL never does in postgres.
func (s *Store) find(in core.RegistrantInput, conflictKey []string) (uuid.UUID, bool) {
	switch strings.Join(conflictKey, ",") {
	case "id":
		if in.ID == nil {
			return uuid.Nil, false
		}
		_, ok := s.rows[*in.ID]
		return *in.ID, ok
	case "vpa":
		for id, r := range s.rows {
			if r.VPA == in.VPA {
				return id, true
			}
		}
	case "phone,vpa":
		if in.Phone == "" {
			return uuid.Nil, false
		}
		for id, r := range s.rows {
			if r.VPA == in.VPA && r.Phone == in.Phone {
				return id, true
			}
		}
	}
	return uuid.Nil, false
}

func (s *Store) clone() *Store {
	c := &Store{
		opts: s.opts,
		rows: make(map[uuid.UUID]core.Registrant, len(s.rows)),
		seq:  make(map[uuid.UUID]int64, len(s.seq)),
		next: s.next,
	}
	for k, v := range s.rows {
		c.rows[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

func apply(r *core.Registrant, in core.RegistrantInput) {
	r.VPA = in.VPA
	r.Phone = in.Phone
	r.CCNo = in.CCNo
	r.RouteNo = in.RouteNo
	r.Name = in.Name
}

func matches(r core.Registrant, search string) bool {
	return strings.Contains(strings.ToLower(r.VPA), search) ||
		strings.Contains(strings.ToLower(r.Name), search) ||
		strings.Contains(r.Phone, search)
}
