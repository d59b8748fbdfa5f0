package sql

import (
	"context"
	"database/sql/driver"
)

var _ driver.Tx = (*tx)(nil)

// tx ends a transaction under spans parented to its BEGIN span.
type tx struct {
	driver.Tx
	begin context.Context
	conn  *Conn
}

// newTx keeps the BEGIN span context without its cancellation, since
// database/sql may commit after the BeginTx context is done.
func newTx(ctx context.Context, t driver.Tx, conn *Conn) *tx {
	return &tx{Tx: t, begin: context.WithoutCancel(ctx), conn: conn}
}

// Commit implements driver.Tx.
func (t *tx) Commit() error {
	return t.conn.observe(t.begin, "COMMIT", "COMMIT", t.conn.attrs, func(context.Context) error {
		return t.Tx.Commit()
	})
}

// Rollback implements driver.Tx.
func (t *tx) Rollback() error {
	return t.conn.observe(t.begin, "ROLLBACK", "ROLLBACK", t.conn.attrs, func(context.Context) error {
		return t.Tx.Rollback()
	})
}
