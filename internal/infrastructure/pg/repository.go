package pg

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"invoicing-service/internal/application"
	"invoicing-service/internal/criteria"
	"invoicing-service/internal/infrastructure/logx"
	"invoicing-service/internal/unitofwork"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// translate maps constraint violations onto application errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", application.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Table maps a row type R onto a table.
type Table[R any] struct {
	Name string
	// Key is the primary key column.
	Key string
	// Columns are selected and returned, matching R's db tags.
	Columns []string
	// Fields maps client-facing field names to columns. Conditions may only
	// use these names.
	Fields map[string]string
	// Values returns the column values written for a row, key included.
	Values func(R) map[string]any
}

func (t Table[R]) definition() criteria.Definition {
	var def criteria.Definition
	for name := range t.Fields {
		def.Fields = append(def.Fields, criteria.Field{Name: name})
	}
	return def
}

// Repository is the generic single-table store. Reads go to the pool; writes
// go to the unit of work active in ctx, or to the pool without one.
type Repository[R any] struct {
	read  DBTX
	table Table[R]
	def   criteria.Definition
}

func NewRepository[R any](read DBTX, t Table[R]) *Repository[R] {
	return &Repository[R]{read: read, table: t, def: t.definition()}
}

func (r *Repository[R]) writer(ctx context.Context) DBTX {
	if w, ok := unitofwork.Accessor(ctx).(DBTX); ok {
		return w
	}
	return r.read
}

func (r *Repository[R]) log(op, sql string) *zap.Logger {
	return logx.L().With(
		zap.String("repo", r.table.Name),
		zap.String("operation", op),
		zap.String("sql", sql),
	)
}

func (r *Repository[R]) where(cond criteria.Condition) (squirrel.Eq, error) {
	if err := cond.Check(r.def); err != nil {
		return nil, err
	}
	eq := squirrel.Eq{}
	for _, k := range cond.Keys() {
		eq[r.table.Fields[k]] = cond[k]
	}
	return eq, nil
}

// Base returns a column-less SELECT over the table for callers that add
// their own predicates.
func (r *Repository[R]) Base() squirrel.SelectBuilder { return psql.Select().From(r.table.Name) }

func (r *Repository[R]) Columns() []string { return append([]string(nil), r.table.Columns...) }

func (r *Repository[R]) get(ctx context.Context, db DBTX, op string, b squirrel.Sqlizer) (R, error) {
	var out R
	q, args, err := b.ToSql()
	if err != nil {
		return out, fmt.Errorf("build %s: %w", op, err)
	}
	log := r.log(op, q)
	log.Info("sql.query_start")
	if err := pgxscan.Get(ctx, db, &out, q, args...); err != nil {
		if pgxscan.NotFound(err) {
			log.Info("sql.query_no_rows")
			return out, application.ErrNotFound
		}
		log.Error("sql.query_failed", zap.Error(err))
		return out, translate(err)
	}
	log.Info("sql.query_success")
	return out, nil
}

func (r *Repository[R]) selectAll(ctx context.Context, op string, b squirrel.SelectBuilder) ([]R, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	log := r.log(op, q)
	log.Info("sql.query_start")
	var out []R
	if err := pgxscan.Select(ctx, r.read, &out, q, args...); err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	log.Info("sql.query_success", zap.Int("rows", len(out)))
	return out, nil
}

func (r *Repository[R]) GetOne(ctx context.Context, id any) (R, error) {
	return r.get(ctx, r.read, "GetOne",
		psql.Select(r.table.Columns...).From(r.table.Name).Where(squirrel.Eq{r.table.Key: id}))
}

// GetOneBy returns nil without error when nothing matches, unless opts.InitThrow.
func (r *Repository[R]) GetOneBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) (*R, error) {
	eq, err := r.where(cond)
	if err != nil {
		return nil, err
	}
	out, err := r.get(ctx, r.read, "GetOneBy",
		psql.Select(r.table.Columns...).From(r.table.Name).Where(eq).Limit(1))
	if errors.Is(err, application.ErrNotFound) && !opts.InitThrow {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository[R]) GetBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) ([]R, error) {
	eq, err := r.where(cond)
	if err != nil {
		return nil, err
	}
	out, err := r.selectAll(ctx, "GetBy", psql.Select(r.table.Columns...).From(r.table.Name).Where(eq))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 && opts.InitThrow {
		return nil, application.ErrNotFound
	}
	return out, nil
}

// GetInBy returns the rows whose field matches any of values.
func (r *Repository[R]) GetInBy(ctx context.Context, field string, values []any) ([]R, error) {
	col, ok := r.table.Fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", criteria.ErrUndeclaredField, field)
	}
	return r.selectAll(ctx, "GetInBy", psql.Select(r.table.Columns...).From(r.table.Name).Where(squirrel.Eq{col: values}))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save inserts row or, when the key exists, overwrites it.
func (r *Repository[R]) Save(ctx context.Context, row R) (R, error) {
	values := r.table.Values(row)
	var set []string
	for _, col := range sortedKeys(values) {
		if col != r.table.Key {
			set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	b := psql.Insert(r.table.Name).SetMap(values).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
			r.table.Key, strings.Join(set, ", "), strings.Join(r.table.Columns, ", ")))
	return r.get(ctx, r.writer(ctx), "Save", b)
}

// Update rewrites an existing row; ErrNotFound when the key is unknown.
func (r *Repository[R]) Update(ctx context.Context, row R) (R, error) {
	values := r.table.Values(row)
	id, ok := values[r.table.Key]
	if !ok {
		var zero R
		return zero, fmt.Errorf("update %s: missing key %s", r.table.Name, r.table.Key)
	}
	b := psql.Update(r.table.Name).Where(squirrel.Eq{r.table.Key: id}).
		Suffix("RETURNING " + strings.Join(r.table.Columns, ", "))
	for _, col := range sortedKeys(values) {
		if col != r.table.Key {
			b = b.Set(col, values[col])
		}
	}
	return r.get(ctx, r.writer(ctx), "Update", b)
}

// Delete removes a row and returns it as it was.
func (r *Repository[R]) Delete(ctx context.Context, id any) (R, error) {
	b := psql.Delete(r.table.Name).Where(squirrel.Eq{r.table.Key: id}).
		Suffix("RETURNING " + strings.Join(r.table.Columns, ", "))
	return r.get(ctx, r.writer(ctx), "Delete", b)
}

// DeleteBy removes every row matching cond and reports how many went.
func (r *Repository[R]) DeleteBy(ctx context.Context, cond criteria.Condition) (int64, error) {
	eq, err := r.where(cond)
	if err != nil {
		return 0, err
	}
	q, args, err := psql.Delete(r.table.Name).Where(eq).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build DeleteBy: %w", err)
	}
	log := r.log("DeleteBy", q)
	log.Info("sql.exec_start")
	tag, err := r.writer(ctx).Exec(ctx, q, args...)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return 0, translate(err)
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// List returns a paginator over base, which callers shape from Base().
func List[R, T any](r *Repository[R], base squirrel.SelectBuilder, c criteria.Criteria, transform func(R) T) *Paginator[R, T] {
	return NewPaginator(r.read, base, r.Columns(), r.table.Fields, c, transform)
}
