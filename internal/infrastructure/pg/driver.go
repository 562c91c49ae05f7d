package pg

import (
	"context"
	"errors"
	"fmt"

	"invoicing-service/internal/unitofwork"

	"github.com/jackc/pgx/v5"
)

var ErrTxActive = errors.New("pg: transaction already active")
var ErrNoTx = errors.New("pg: no active transaction")

// Conn is a single connection able to open transactions.
type Conn interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type acquireFunc func(ctx context.Context) (Conn, func(), error)

// Driver hands out one pool connection per unit of work.
type Driver struct{ acquire acquireFunc }

var _ unitofwork.Driver = (*Driver)(nil)

func NewDriver(db *DB) *Driver {
	return &Driver{acquire: func(ctx context.Context) (Conn, func(), error) {
		c, err := db.Pool.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Release, nil
	}}
}

// NewConnDriver runs every unit of work on conn and never closes it.
func NewConnDriver(conn Conn) *Driver {
	return &Driver{acquire: func(context.Context) (Conn, func(), error) {
		return conn, func() {}, nil
	}}
}

func (d *Driver) Connect(ctx context.Context) (unitofwork.Handle, error) {
	c, release, err := d.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	return &connHandle{conn: c, release: release}, nil
}

type connHandle struct {
	conn     Conn
	release  func()
	tx       pgx.Tx
	released bool
}

func (h *connHandle) StartTransaction(ctx context.Context) error {
	if h.tx != nil {
		return ErrTxActive
	}
	tx, err := h.conn.Begin(ctx)
	if err != nil {
		return err
	}
	h.tx = tx
	return nil
}

// CommitTransaction keeps the transaction marked active when the commit
// fails so the caller can still roll it back.
func (h *connHandle) CommitTransaction(ctx context.Context) error {
	if h.tx == nil {
		return ErrNoTx
	}
	if err := h.tx.Commit(ctx); err != nil {
		return err
	}
	h.tx = nil
	return nil
}

func (h *connHandle) RollbackTransaction(ctx context.Context) error {
	if h.tx == nil {
		return nil
	}
	tx := h.tx
	h.tx = nil
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// Release rolls back a transaction left open and returns the connection.
func (h *connHandle) Release() error {
	if h.released {
		return nil
	}
	var err error
	if h.tx != nil {
		err = h.RollbackTransaction(context.Background())
	}
	h.release()
	h.released = true
	return err
}

func (h *connHandle) IsTransactionActive() bool { return h.tx != nil }
func (h *connHandle) IsReleased() bool          { return h.released }

// Accessor is a DBTX: the open transaction, or the bare connection.
func (h *connHandle) Accessor() any {
	if h.tx != nil {
		return DBTX(h.tx)
	}
	return DBTX(h.conn)
}
