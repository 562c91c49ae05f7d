package application

import (
	"context"
	"time"

	"invoicing-service/internal/criteria"
	"invoicing-service/internal/domain"

	"github.com/google/uuid"
)

// ItemRepo persists the item aggregate (header plus details). Writes run on the
// unit of work found in ctx, reads always go to the pool.
type ItemRepo interface {
	GetOne(ctx context.Context, id uuid.UUID) (domain.Item, error)
	GetOneBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) (*domain.Item, error)
	GetBy(ctx context.Context, cond criteria.Condition, opts criteria.ByOptions) ([]domain.Item, error)
	GetInBy(ctx context.Context, field string, values []any) ([]domain.Item, error)
	Save(ctx context.Context, item *domain.Item) (domain.Item, error)
	Update(ctx context.Context, item *domain.Item) (domain.Item, error)
	Delete(ctx context.Context, id uuid.UUID) (domain.Item, error)
	List(c criteria.Criteria) criteria.Paginator[domain.Item]
}

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ New() uuid.UUID }

type defaultIDGen struct{}

func (defaultIDGen) New() uuid.UUID { return uuid.New() }
