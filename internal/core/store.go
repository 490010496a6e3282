package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RegistryStore persists registrants. Implementations report uniqueness
// violations as *ConflictError and missing ids as *NotFoundError.
//
// Stores impose their own limits: Fetch caps Limit at the store's page
// ceiling, and Existing and Delete reject id lists above the store's filter limit.
type RegistryStore interface {
	Create(ctx context.Context, in RegistrantInput) (Registrant, error)
	Get(ctx context.Context, id uuid.UUID) (Registrant, error)
	Update(ctx context.Context, id uuid.UUID, in RegistrantInput) (Registrant, error)

	// Insert writes all inputs or none.
	Insert(ctx context.Context, in []RegistrantInput) (int, error)

	// Upsert writes all inputs or none, updating rows that collide on conflictKey.
	Upsert(ctx context.Context, in []RegistrantInput, conflictKey []string) (int, error)

	// Fetch returns a page of registrants and the total matching count.
	Fetch(ctx context.Context, p Page) ([]Registrant, int64, error)

	// Existing returns the subset of ids that are stored, in no particular
	// order. It shares Delete's filter limit.
	Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	// Delete removes the given ids and returns how many rows were removed.
	Delete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// FetchAll pages through the whole registry with the given page size.
func FetchAll(ctx context.Context, store RegistryStore, pageSize int) ([]Registrant, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	var all []Registrant
	for offset := 0; ; {
		page, total, err := store.Fetch(ctx, Page{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("fetch registrants at offset %d: %w", offset, err)
		}
		if all == nil {
			all = make([]Registrant, 0, total)
		}
		all = append(all, page...)
		offset += len(page)

		// An empty page ends the walk even if total claims more rows,
		// which happens when rows are deleted mid-walk.
		if len(page) == 0 || int64(offset) >= total {
			return all, nil
		}
	}
}
