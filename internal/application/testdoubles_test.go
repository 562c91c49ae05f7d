package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeItemRepo struct {
	items  map[uuid.UUID]domain.Item
	err    error
	saved  int
	listed []criteria.Criteria
}

func newFakeItemRepo(items ...domain.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: map[uuid.UUID]domain.Item{}}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (f *fakeItemRepo) GetOne(_ context.Context, id uuid.UUID) (domain.Item, error) {
	if f.err != nil {
		return domain.Item{}, f.err
	}
	it, ok := f.items[id]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	return it, nil
}

func (f *fakeItemRepo) GetOneBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) (*domain.Item, error) {
	found, err := f.GetBy(ctx, cond, opts)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (f *fakeItemRepo) GetBy(_ context.Context, cond criteria.Condition, opts criteria.ByOptions) ([]domain.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Item
	for _, it := range f.items {
		if n, ok := cond[ItemFieldNumber]; ok && it.Number != n {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 && opts.InitThrow {
		return nil, ErrNotFound
	}
	return out, nil
}

func (f *fakeItemRepo) GetInBy(context.Context, string, []any) ([]domain.Item, error) {
	return nil, f.err
}

func (f *fakeItemRepo) Save(_ context.Context, it *domain.Item) (domain.Item, error) {
	if f.err != nil {
		return domain.Item{}, f.err
	}
	f.saved++
	f.items[it.ID] = *it
	return *it, nil
}

func (f *fakeItemRepo) Update(_ context.Context, it *domain.Item) (domain.Item, error) {
	if _, ok := f.items[it.ID]; !ok {
		return domain.Item{}, ErrNotFound
	}
	f.items[it.ID] = *it
	return *it, nil
}

func (f *fakeItemRepo) Delete(_ context.Context, id uuid.UUID) (domain.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return domain.Item{}, ErrNotFound
	}
	delete(f.items, id)
	return it, nil
}

func (f *fakeItemRepo) List(c criteria.Criteria) criteria.Paginator[domain.Item] {
	f.listed = append(f.listed, c)
	return fakePaginator{repo: f, c: c}
}

type fakePaginator struct {
	repo *fakeItemRepo
	c    criteria.Criteria
}

func (p fakePaginator) Paginate(context.Context) (criteria.Page[domain.Item], error) {
	var all []domain.Item
	for _, it := range p.repo.items {
		all = append(all, it)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	return criteria.NewPage(all, len(all), p.c.Pagination()), nil
}

// recordingUoW runs fn directly and remembers the labels it was asked for.
type recordingUoW struct{ labels []string }

func (u *recordingUoW) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	u.labels = append(u.labels, label)
	return fn(ctx)
}

type fakeIdem struct {
	seen       map[string]bool
	err        error
	releaseErr error
}

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	if f.releaseErr != nil {
		return f.releaseErr
	}
	delete(f.seen, k)
	return nil
}

type fakeClock struct{ t time.Time }

func (c fakeClock) Now() time.Time { return c.t }

type fixedIDGen struct{ id uuid.UUID }

func (g fixedIDGen) New() uuid.UUID { return g.id }
