package criteria

import "context"

// Page is one window of a list result plus its position metadata.
type Page[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	PerPage     int `json:"perPage"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// Paginator executes a prepared list query.
type Paginator[T any] interface {
	Paginate(ctx context.Context) (Page[T], error)
}

// NewPage computes page metadata for data fetched with p out of total rows.
func NewPage[T any](data []T, total int, p Pagination) Page[T] {
	if data == nil {
		data = []T{}
	}
	perPage := len(data)
	offset, limit := 0, 0
	if p.Exists {
		offset, limit = p.Offset, p.Limit
	}

	current := 1
	if limit > 0 {
		current = offset/limit + 1
	}

	size := limit
	if size <= 0 {
		size = max(perPage, 1)
	}
	last := max((total+size-1)/size, 1)

	from, to := 0, 0
	if perPage > 0 {
		from, to = offset+1, offset+perPage
	}

	return Page[T]{
		Data:        data,
		Total:       total,
		PerPage:     perPage,
		CurrentPage: current,
		LastPage:    last,
		From:        from,
		To:          to,
	}
}

// MapPage converts the rows of p and keeps its metadata.
func MapPage[S, T any](p Page[S], fn func(S) T) Page[T] {
	out := make([]T, 0, len(p.Data))
	for _, v := range p.Data {
		out = append(out, fn(v))
	}
	return Page[T]{
		Data:        out,
		Total:       p.Total,
		PerPage:     p.PerPage,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		From:        p.From,
		To:          p.To,
	}
}
