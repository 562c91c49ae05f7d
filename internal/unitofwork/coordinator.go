package unitofwork

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidState is returned when a lifecycle step is requested out of order.
var ErrInvalidState = errors.New("unitofwork: invalid transaction state")

// Driver opens handles on the backing store.
type Driver interface {
	Connect(ctx context.Context) (Handle, error)
}

// Handle is a connection that can carry one transaction at a time.
type Handle interface {
	StartTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	Release() error
	IsTransactionActive() bool
	IsReleased() bool
	// Accessor returns the data manager bound to this handle. Its concrete
	// type is defined by the driver.
	Accessor() any
}

// State is the lifecycle position of a TransactionContext.
type State int

const (
	StateCreated State = iota
	StateActive
	StateCommitting
	StateRollingBack
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateCommitting:
		return "committing"
	case StateRollingBack:
		return "rolling_back"
	case StateCleaned:
		return "cleaned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransactionContext ties one BeginOrJoin call to its handle. Only the owner
// may finalize or release the handle.
type TransactionContext struct {
	Handle  Handle
	IsOwner bool
	Label   string
	state   State
}

func (tc *TransactionContext) State() State { return tc.state }

// advance moves to next if the transition is allowed.
func (tc *TransactionContext) advance(next State) bool {
	switch {
	case next == StateCleaned:
		ok := tc.state != StateCleaned
		if ok {
			tc.state = next
		}
		return ok
	case tc.state == StateActive && (next == StateCommitting || next == StateRollingBack):
		tc.state = next
		return true
	case tc.state == StateCreated && next == StateActive:
		tc.state = next
		return true
	default:
		return false
	}
}

// Event names a lifecycle step reported to an Observer.
type Event string

const (
	EventBegin        Event = "begin"
	EventJoin         Event = "join"
	EventCommit       Event = "commit"
	EventCommitFailed Event = "commit_failed"
	EventRollback     Event = "rollback"
	EventCleanup      Event = "cleanup"
)

// Observer receives lifecycle events. Implementations must not block.
type Observer interface {
	Observe(label string, ev Event)
}

type Coordinator struct {
	driver   Driver
	log      *zap.Logger
	observer Observer
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.log = l } }
func WithObserver(o Observer) Option  { return func(c *Coordinator) { c.observer = o } }

func NewCoordinator(driver Driver, opts ...Option) *Coordinator {
	c := &Coordinator{driver: driver}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func (c *Coordinator) observe(label string, ev Event) {
	if c.observer != nil {
		c.observer.Observe(label, ev)
	}
}

// BeginOrJoin joins the transaction already active in ctx's carrier or starts
// a new one and takes ownership of it. When ctx carries no carrier a fresh one
// is attached to the returned context.
func (c *Coordinator) BeginOrJoin(ctx context.Context, label string) (context.Context, *TransactionContext, error) {
	carrier := FromContext(ctx)
	if carrier == nil {
		ctx, carrier = WithCarrier(ctx)
	}
	log := c.log.With(zap.String("label", label))
	log.Info("uow.start")

	if h, ok := carrier.Get(HandleKey).(Handle); ok && !h.IsReleased() {
		carrier.Set(AccessorKey, h.Accessor())
		log.Debug("uow.joined")
		c.observe(label, EventJoin)
		return ctx, &TransactionContext{Handle: h, Label: label, state: StateActive}, nil
	}

	h, err := c.driver.Connect(ctx)
	if err != nil {
		log.Error("uow.connect_failed", zap.Error(err))
		return ctx, nil, fmt.Errorf("unitofwork: connect: %w", err)
	}
	if err := h.StartTransaction(ctx); err != nil {
		log.Error("uow.begin_failed", zap.Error(err))
		if relErr := h.Release(); relErr != nil {
			log.Error("uow.release_failed", zap.Error(relErr))
		}
		return ctx, nil, fmt.Errorf("unitofwork: begin: %w", err)
	}
	carrier.Set(HandleKey, h)
	carrier.Set(AccessorKey, h.Accessor())
	log.Info("uow.started")
	c.observe(label, EventBegin)

	tc := &TransactionContext{Handle: h, IsOwner: true, Label: label}
	tc.advance(StateActive)
	return ctx, tc, nil
}

// Commit finalizes the transaction when tc owns it. A failed commit triggers a
// best-effort rollback and the commit error is returned unchanged.
func (c *Coordinator) Commit(ctx context.Context, tc *TransactionContext, label string) error {
	if tc == nil {
		return ErrInvalidState
	}
	log := c.log.With(zap.String("label", label))
	if !tc.advance(StateCommitting) {
		log.Warn("uow.commit_out_of_order", zap.Stringer("state", tc.state))
		return ErrInvalidState
	}
	if !tc.IsOwner {
		return nil
	}
	if !tc.Handle.IsTransactionActive() {
		return nil
	}
	if err := tc.Handle.CommitTransaction(ctx); err != nil {
		log.Error("uow.commit_failed", zap.Error(err))
		c.observe(label, EventCommitFailed)
		if tc.Handle.IsTransactionActive() {
			if rbErr := tc.Handle.RollbackTransaction(ctx); rbErr != nil {
				log.Error("uow.rollback_after_commit_failed", zap.Error(rbErr))
			}
		}
		return err
	}
	log.Info("uow.committed")
	c.observe(label, EventCommit)
	return nil
}

// Rollback aborts the transaction when tc owns it. Rollback failures are
// logged and swallowed so cause reaches the caller untouched.
func (c *Coordinator) Rollback(ctx context.Context, tc *TransactionContext, cause error, label string) {
	if tc == nil {
		return
	}
	log := c.log.With(zap.String("label", label))
	if !tc.advance(StateRollingBack) {
		log.Warn("uow.rollback_out_of_order", zap.Stringer("state", tc.state))
		return
	}
	if !tc.IsOwner {
		return
	}
	log.Info("uow.rolling_back", zap.NamedError("cause", cause))
	if !tc.Handle.IsTransactionActive() {
		return
	}
	if err := tc.Handle.RollbackTransaction(ctx); err != nil {
		log.Error("uow.rollback_failed", zap.Error(err))
		return
	}
	c.observe(label, EventRollback)
}

// Cleanup clears the accessor from the carrier and, for the owner, releases
// the handle and clears it too. Only the first call has an effect.
func (c *Coordinator) Cleanup(ctx context.Context, tc *TransactionContext, label string) {
	if tc == nil {
		return
	}
	log := c.log.With(zap.String("label", label))
	if !tc.advance(StateCleaned) {
		log.Warn("uow.cleanup_repeated")
		return
	}
	carrier := FromContext(ctx)
	if carrier != nil {
		carrier.Set(AccessorKey, nil)
	}
	if tc.IsOwner {
		if !tc.Handle.IsReleased() {
			if err := tc.Handle.Release(); err != nil {
				log.Error("uow.release_failed", zap.Error(err))
			} else {
				log.Debug("uow.released")
			}
		}
		if carrier != nil {
			carrier.Set(HandleKey, nil)
		}
	}
	log.Info("uow.end")
	c.observe(label, EventCleanup)
}

// ExecuteInTransaction runs fn inside a unit of work. The error returned is
// the one produced by fn, or the commit error; never a cleanup error.
func (c *Coordinator) ExecuteInTransaction(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	txCtx, tc, err := c.BeginOrJoin(ctx, label)
	if err != nil {
		return err
	}
	defer c.Cleanup(txCtx, tc, label)
	defer func() {
		if p := recover(); p != nil {
			c.Rollback(txCtx, tc, fmt.Errorf("panic: %v", p), label)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		c.Rollback(txCtx, tc, err, label)
		return err
	}
	return c.Commit(txCtx, tc, label)
}

// Do satisfies application.UnitOfWork.
func (c *Coordinator) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	return c.ExecuteInTransaction(ctx, label, fn)
}

// Execute is ExecuteInTransaction for operations that produce a value.
func Execute[T any](ctx context.Context, c *Coordinator, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.ExecuteInTransaction(ctx, label, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
