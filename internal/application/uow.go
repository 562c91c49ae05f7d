package application

import "context"

// UnitOfWork runs fn inside a transaction boundary labelled for logs and
// metrics. Nested calls join the boundary already open in ctx.
type UnitOfWork interface {
	Do(ctx context.Context, label string, fn func(ctx context.Context) error) error
}

// NoopUoW executes the function without starting a transaction.
type NoopUoW struct{}

func (NoopUoW) Do(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
