package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"invoicing-service/internal/application"
	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"
	"invoicing-service/internal/infrastructure/metrics"
	"invoicing-service/internal/unitofwork"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var _ application.ItemRepo = (*memItemRepo)(nil)

type memItemRepo struct {
	items map[uuid.UUID]domain.Item
}

func (m *memItemRepo) GetOne(_ context.Context, id uuid.UUID) (domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return domain.Item{}, application.ErrNotFound
	}
	return it, nil
}

func (m *memItemRepo) GetOneBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) (*domain.Item, error) {
	found, err := m.GetBy(ctx, cond, opts)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

func (m *memItemRepo) GetBy(_ context.Context, cond criteria.Condition, opts criteria.ByOptions) ([]domain.Item, error) {
	var out []domain.Item
	for _, it := range m.items {
		if n, ok := cond[application.ItemFieldNumber]; ok && it.Number != n {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 && opts.InitThrow {
		return nil, application.ErrNotFound
	}
	return out, nil
}

func (m *memItemRepo) GetInBy(context.Context, string, []any) ([]domain.Item, error) {
	return nil, errors.New("not supported")
}

func (m *memItemRepo) Save(_ context.Context, it *domain.Item) (domain.Item, error) {
	m.items[it.ID] = *it
	return *it, nil
}

func (m *memItemRepo) Update(_ context.Context, it *domain.Item) (domain.Item, error) {
	if _, ok := m.items[it.ID]; !ok {
		return domain.Item{}, application.ErrNotFound
	}
	m.items[it.ID] = *it
	return *it, nil
}

func (m *memItemRepo) Delete(_ context.Context, id uuid.UUID) (domain.Item, error) {
	it, ok := m.items[id]
	if !ok {
		return domain.Item{}, application.ErrNotFound
	}
	delete(m.items, id)
	return it, nil
}

func (m *memItemRepo) List(c criteria.Criteria) criteria.Paginator[domain.Item] {
	return memPaginator{repo: m, c: c}
}

type memPaginator struct {
	repo *memItemRepo
	c    criteria.Criteria
}

func (p memPaginator) Paginate(context.Context) (criteria.Page[domain.Item], error) {
	var all []domain.Item
	for _, it := range p.repo.items {
		if v, ok := p.c.Filter().String(application.ItemFieldCustomerName); ok && it.CustomerName != v {
			continue
		}
		all = append(all, it)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })
	total := len(all)
	if w := p.c.Pagination(); w.Exists {
		all = all[min(w.Offset, len(all)):min(w.Offset+w.Limit, len(all))]
	}
	return criteria.NewPage(all, total, p.c.Pagination()), nil
}

// txLog records what the fake store was asked to do.
type txLog struct {
	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
	releases  int
	commitErr error
}

func (l *txLog) counts() (int, int, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.begins, l.commits, l.rollbacks, l.releases
}

type fakeDriver struct{ log *txLog }

func (d fakeDriver) Connect(context.Context) (unitofwork.Handle, error) {
	return &fakeHandle{log: d.log}, nil
}

type fakeHandle struct {
	log      *txLog
	active   bool
	released bool
}

func (h *fakeHandle) StartTransaction(context.Context) error {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.log.begins++
	h.active = true
	return nil
}

func (h *fakeHandle) CommitTransaction(context.Context) error {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	if h.log.commitErr != nil {
		return h.log.commitErr
	}
	h.log.commits++
	h.active = false
	return nil
}

func (h *fakeHandle) RollbackTransaction(context.Context) error {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.log.rollbacks++
	h.active = false
	return nil
}

func (h *fakeHandle) Release() error {
	h.log.mu.Lock()
	defer h.log.mu.Unlock()
	h.log.releases++
	h.released = true
	return nil
}

func (h *fakeHandle) IsTransactionActive() bool { return h.active }
func (h *fakeHandle) IsReleased() bool          { return h.released }
func (h *fakeHandle) Accessor() any             { return h }

type testEnv struct {
	handler http.Handler
	repo    *memItemRepo
	tx      *txLog
	server  *Server
}

func newTestEnv(items ...domain.Item) *testEnv {
	repo := &memItemRepo{items: map[uuid.UUID]domain.Item{}}
	for _, it := range items {
		repo.items[it.ID] = it
	}
	tx := &txLog{}
	coord := unitofwork.NewCoordinator(fakeDriver{log: tx})
	svc := application.NewItemService(repo, coord, nil)
	reg := prometheus.NewRegistry()
	srv := NewServer(svc, coord, WithMetrics(metrics.New(reg), reg))
	return &testEnv{handler: NewRouter(srv), repo: repo, tx: tx, server: srv}
}
