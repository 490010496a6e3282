// Package postgres implements the registry store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableName = "registrants"

	// pgUniqueViolation is the SQLSTATE for unique_violation.
	pgUniqueViolation = "23505"
)

const columns = "id, vpa, phone, cc_no, route_no, name, inserted_at, updated_at"

// conflictTargets maps a canonical conflict key onto the columns of a unique
// constraint declared in the schema.
var conflictTargets = map[string][]string{
	"vpa":       {"vpa"},
	"phone,vpa": {"phone", "vpa"},
	"id":        {"id"},
}

// Options bounds what a single store call may return or touch.
type Options struct {
	PageLimit   int
	FilterLimit int
}

// Store is a core.RegistryStore backed by a pgx connection pool.
type Store struct {
	pool        *pgxpool.Pool
	pageLimit   int
	filterLimit int
}

var _ core.RegistryStore = (*Store)(nil)

// New creates a store on an existing pool.
func New(pool *pgxpool.Pool, opts Options) *Store {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 1000
	}
	if opts.FilterLimit <= 0 {
		opts.FilterLimit = 1000
	}
	return &Store{pool: pool, pageLimit: opts.PageLimit, filterLimit: opts.FilterLimit}
}

// EnsureSchema creates the registrants table and its unique constraints.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Create inserts one registrant.
func (s *Store) Create(ctx context.Context, in core.RegistrantInput) (core.Registrant, error) {
	id := inputID(in)
	row := s.pool.QueryRow(ctx, insertSQL+" RETURNING "+columns,
		id, in.VPA, nullText(in.Phone), nullText(in.CCNo), nullText(in.RouteNo), nullText(in.Name))

	r, err := scanRegistrant(row)
	if err != nil {
		return core.Registrant{}, translate(err, id)
	}
	return r, nil
}

// Get loads one registrant by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (core.Registrant, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", columns, quoteIdentifier(tableName))

	r, err := scanRegistrant(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return core.Registrant{}, translate(err, id)
	}
	return r, nil
}

// Update replaces the writable fields of an existing registrant.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in core.RegistrantInput) (core.Registrant, error) {
	query := fmt.Sprintf(`UPDATE %s
		SET vpa = $2, phone = $3, cc_no = $4, route_no = $5, name = $6, updated_at = now()
		WHERE id = $1
		RETURNING %s`, quoteIdentifier(tableName), columns)

	row := s.pool.QueryRow(ctx, query,
		id, in.VPA, nullText(in.Phone), nullText(in.CCNo), nullText(in.RouteNo), nullText(in.Name))

	r, err := scanRegistrant(row)
	if err != nil {
		return core.Registrant{}, translate(err, id)
	}
	return r, nil
}

// Insert writes all inputs in one transaction. Any duplicate rolls back the batch.
func (s *Store) Insert(ctx context.Context, in []core.RegistrantInput) (int, error) {
	return s.writeBatch(ctx, in, insertSQL)
}

// Upsert writes all inputs in one transaction, updating rows that collide on
// the unique constraint named by conflictKey.
func (s *Store) Upsert(ctx context.Context, in []core.RegistrantInput, conflictKey []string) (int, error) {
	target, ok := conflictTargets[strings.Join(conflictKey, ",")]
	if !ok {
		return 0, fmt.Errorf("unsupported conflict key %q", strings.Join(conflictKey, ","))
	}

	quoted := make([]string, len(target))
	for i, col := range target {
		quoted[i] = quoteIdentifier(col)
	}

	query := fmt.Sprintf(`%s
		ON CONFLICT (%s) DO UPDATE SET
			vpa = EXCLUDED.vpa,
			phone = EXCLUDED.phone,
			cc_no = EXCLUDED.cc_no,
			route_no = EXCLUDED.route_no,
			name = EXCLUDED.name,
			updated_at = now()`, insertSQL, strings.Join(quoted, ", "))

	return s.writeBatch(ctx, in, query)
}

func (s *Store) writeBatch(ctx context.Context, in []core.RegistrantInput, query string) (int, error) {
	if len(in) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range in {
		batch.Queue(query, inputID(r), r.VPA,
			nullText(r.Phone), nullText(r.CCNo), nullText(r.RouteNo), nullText(r.Name))
	}

	br := tx.SendBatch(ctx, batch)
	written := 0
	for i := range in {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("record %d: %w", i+1, translate(err, uuid.Nil))
		}
		written += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, translate(err, uuid.Nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", translate(err, uuid.Nil))
	}
	return written, nil
}

// Fetch returns one page ordered by insertion time, plus the matching count.
// Search matches vpa, name, or phone case-insensitively.
func (s *Store) Fetch(ctx context.Context, p core.Page) ([]core.Registrant, int64, error) {
	limit := p.Limit
	if limit <= 0 || limit > s.pageLimit {
		limit = s.pageLimit
	}
	offset := max(p.Offset, 0)

	where := ""
	args := []any{}
	if search := strings.TrimSpace(p.Search); search != "" {
		where = " WHERE vpa ILIKE $1 OR name ILIKE $1 OR phone ILIKE $1"
		args = append(args, "%"+escapeLike(search)+"%")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdentifier(tableName), where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registrants: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY inserted_at, id LIMIT $%d OFFSET $%d",
		columns, quoteIdentifier(tableName), where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch registrants: %w", err)
	}
	defer rows.Close()

	out := make([]core.Registrant, 0, limit)
	for rows.Next() {
		r, err := scanRegistrant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registrant: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("fetch registrants: %w", err)
	}
	return out, total, nil
}

// Existing returns the stored subset of ids.
func (s *Store) Existing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > s.filterLimit {
		return nil, fmt.Errorf("lookup filter too large: %d ids exceeds limit of %d", len(ids), s.filterLimit)
	}

	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1)", quoteIdentifier(tableName))
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("lookup registrants: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("lookup registrants: %w", err)
	}
	return found, nil
}

// Delete removes the given ids with a single statement.
func (s *Store) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > s.filterLimit {
		return 0, fmt.Errorf("delete filter too large: %d ids exceeds limit of %d", len(ids), s.filterLimit)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", quoteIdentifier(tableName))
	tag, err := s.pool.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("delete registrants: %w", err)
	}
	return tag.RowsAffected(), nil
}

var insertSQL = fmt.Sprintf(
	"INSERT INTO %s (id, vpa, phone, cc_no, route_no, name) VALUES ($1, $2, $3, $4, $5, $6)",
	quoteIdentifier(tableName))

func inputID(in core.RegistrantInput) uuid.UUID {
	if in.ID != nil {
		return *in.ID
	}
	return uuid.New()
}

func scanRegistrant(row pgx.Row) (core.Registrant, error) {
	var r core.Registrant
	var phone, ccNo, routeNo, name pgtype.Text
	if err := row.Scan(&r.ID, &r.VPA, &phone, &ccNo, &routeNo, &name, &r.InsertedAt, &r.UpdatedAt); err != nil {
		return core.Registrant{}, err
	}
	r.Phone = phone.String
	r.CCNo = ccNo.String
	r.RouteNo = routeNo.String
	r.Name = name.String
	return r, nil
}

// nullText stores empty optional fields as NULL so (phone, vpa) uniqueness
// does not collide on blank phones.
func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// translate maps driver errors onto the core error types.
func translate(err error, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &core.NotFoundError{Resource: "registrant", ID: id.String()}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &core.ConflictError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}

// quoteIdentifier safely quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
