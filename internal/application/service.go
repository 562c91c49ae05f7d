package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"
	"invoicing-service/internal/infrastructure/logx"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemPayload is the write model accepted by Save and Update.
type ItemPayload struct {
	Number       string
	Date         time.Time
	CustomerName string
	Details      []ItemDetailPayload
}

type ItemDetailPayload struct {
	ProductName        string
	Quantity           int
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
}

type ItemService struct {
	repo  ItemRepo
	uow   UnitOfWork
	idem  IdempotencyStore
	clock Clock
	idgen IDGen
}

type Option func(*ItemService)

func WithClock(c Clock) Option { return func(s *ItemService) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *ItemService) { s.idgen = g } }

func NewItemService(repo ItemRepo, uow UnitOfWork, idem IdempotencyStore, opts ...Option) *ItemService {
	s := &ItemService{repo: repo, uow: uow, idem: idem}
	for _, opt := range opts {
		opt(s)
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	return s
}

// Save creates an item. A non-empty idemKey that was already used is rejected
// with ErrConflict before any write happens. The key is released again when
// the save fails so the client may retry.
func (s *ItemService) Save(ctx context.Context, p ItemPayload, idemKey *string) (domain.Item, error) {
	reserved := ""
	if idemKey != nil && *idemKey != "" {
		key := "item:save:" + *idemKey
		ok, err := s.idem.TryReserve(ctx, key)
		if err != nil {
			return domain.Item{}, err
		}
		if !ok {
			return domain.Item{}, fmt.Errorf("%w: idempotency key already used", ErrConflict)
		}
		reserved = key
	}

	var out domain.Item
	err := s.uow.Do(ctx, "item.save", func(ctx context.Context) error {
		if err := s.ensureUniqueNumber(ctx, p.Number, uuid.Nil); err != nil {
			return err
		}
		item, err := s.build(p, s.idgen.New())
		if err != nil {
			return err
		}
		now := s.clock.Now()
		item.CreatedAt, item.UpdatedAt = now, now
		out, err = s.repo.Save(ctx, item)
		return err
	})
	if err != nil {
		if reserved != "" {
			if rerr := s.idem.Release(ctx, reserved); rerr != nil {
				logx.WithFields(ctx).Warn("idempotency.release_failed", zap.String("key", reserved), zap.Error(rerr))
			}
		}
		return domain.Item{}, err
	}
	return out, nil
}

// Update replaces the header and details of an existing item.
func (s *ItemService) Update(ctx context.Context, id uuid.UUID, p ItemPayload) (domain.Item, error) {
	var out domain.Item
	err := s.uow.Do(ctx, "item.update", func(ctx context.Context) error {
		existing, err := s.repo.GetOne(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkModifiable(&existing); err != nil {
			return err
		}
		if existing.Number != p.Number {
			if err := s.ensureUniqueNumber(ctx, p.Number, id); err != nil {
				return err
			}
		}
		item, err := s.build(p, id)
		if err != nil {
			return err
		}
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = s.clock.Now()
		out, err = s.repo.Update(ctx, item)
		return err
	})
	if err != nil {
		return domain.Item{}, err
	}
	return out, nil
}

// Delete removes an item and returns what was deleted.
func (s *ItemService) Delete(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	var out domain.Item
	err := s.uow.Do(ctx, "item.delete", func(ctx context.Context) error {
		existing, err := s.repo.GetOne(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkModifiable(&existing); err != nil {
			return err
		}
		out, err = s.repo.Delete(ctx, id)
		return err
	})
	if err != nil {
		return domain.Item{}, err
	}
	return out, nil
}

func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (domain.Item, error) {
	return s.repo.GetOne(ctx, id)
}

func (s *ItemService) List(ctx context.Context, c criteria.Criteria) (criteria.Page[domain.Item], error) {
	return s.repo.List(c).Paginate(ctx)
}

func (s *ItemService) checkModifiable(it *domain.Item) error {
	st := domain.CalculateStatus(it, s.clock.Now(), nil, nil)
	if !st.CanModify() {
		return fmt.Errorf("%w: cannot modify item with status %s: %s", ErrValidation, st, st.Description())
	}
	return nil
}

func (s *ItemService) ensureUniqueNumber(ctx context.Context, number string, exclude uuid.UUID) error {
	found, err := s.repo.GetBy(ctx, criteria.Condition{ItemFieldNumber: number}, criteria.ByOptions{})
	if err != nil {
		return err
	}
	for _, it := range found {
		if it.ID != exclude {
			return fmt.Errorf("%w: item with number %s already exists", ErrConflict, number)
		}
	}
	return nil
}

func (s *ItemService) build(p ItemPayload, id uuid.UUID) (*domain.Item, error) {
	if p.Date.After(s.clock.Now()) {
		return nil, fmt.Errorf("%w: item date cannot be in the future", ErrValidation)
	}
	item := domain.NewItem(p.Number, p.Date, p.CustomerName, id)
	for _, d := range p.Details {
		detail := domain.NewItemDetail(id, d.ProductName, d.Quantity, d.UnitPrice, d.DiscountPercentage, uuid.Nil)
		if err := detail.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		item.AddDetail(detail)
	}
	if err := item.CheckAmount(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return item, nil
}

// IsClientError reports whether err should be surfaced to the caller as their fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadRequest) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
