package pg

import (
	"context"
	"fmt"

	"invoicing-service/internal/criteria"
	"invoicing-service/internal/infrastructure/logx"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

// Paginator runs a count and a windowed select over the same base query.
// Rows of type R are converted to T on the way out. Without a transform the
// rows are returned as they are, which requires R to be assignable to T.
type Paginator[R, T any] struct {
	db        DBTX
	base      squirrel.SelectBuilder
	columns   []string
	sortable  map[string]string
	criteria  criteria.Criteria
	transform func(R) T
}

var _ criteria.Paginator[int] = (*Paginator[int, int])(nil)

// NewPaginator expects base to carry FROM and WHERE but no columns. sortable
// maps sort field names to columns; unknown fields are skipped.
func NewPaginator[R, T any](db DBTX, base squirrel.SelectBuilder, columns []string, sortable map[string]string, c criteria.Criteria, transform func(R) T) *Paginator[R, T] {
	return &Paginator[R, T]{db: db, base: base, columns: columns, sortable: sortable, criteria: c, transform: transform}
}

func (p *Paginator[R, T]) Paginate(ctx context.Context) (criteria.Page[T], error) {
	countSQL, countArgs, err := p.base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return criteria.Page[T]{}, fmt.Errorf("build count: %w", err)
	}
	var total int64
	if err := p.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logx.L().Error("sql.query_failed", zap.String("operation", "Paginate.count"), zap.String("sql", countSQL), zap.Error(err))
		return criteria.Page[T]{}, err
	}

	q := p.base.Columns(p.columns...)
	for _, o := range p.criteria.Sort().Orders() {
		col, ok := p.sortable[o.Field]
		if !ok {
			continue
		}
		q = q.OrderBy(col + " " + string(o.Direction))
	}
	window := p.criteria.Pagination()
	if window.Exists {
		q = q.Offset(uint64(window.Offset)).Limit(uint64(window.Limit))
	}
	dataSQL, dataArgs, err := q.ToSql()
	if err != nil {
		return criteria.Page[T]{}, fmt.Errorf("build page: %w", err)
	}
	var rows []R
	if err := pgxscan.Select(ctx, p.db, &rows, dataSQL, dataArgs...); err != nil {
		logx.L().Error("sql.query_failed", zap.String("operation", "Paginate.select"), zap.String("sql", dataSQL), zap.Error(err))
		return criteria.Page[T]{}, err
	}
	logx.L().Debug("sql.page_loaded", zap.Int64("total", total), zap.Int("rows", len(rows)))

	data := make([]T, 0, len(rows))
	for _, r := range rows {
		if p.transform != nil {
			data = append(data, p.transform(r))
			continue
		}
		v, ok := any(r).(T)
		if !ok {
			return criteria.Page[T]{}, fmt.Errorf("paginate: %T rows need a transform to %T", r, v)
		}
		data = append(data, v)
	}
	return criteria.NewPage(data, int(total), window), nil
}
