package sql

import (
	"context"
	"database/sql/driver"
)

var (
	_ driver.Stmt              = (*stmt)(nil)
	_ driver.StmtExecContext   = (*stmt)(nil)
	_ driver.StmtQueryContext  = (*stmt)(nil)
	_ driver.NamedValueChecker = (*stmt)(nil)
)

// stmt is a prepared statement on a traced connection.
// Preparing is not traced; each execution is.
type stmt struct {
	driver.Stmt
	conn  *Conn
	query string
}

func newStmt(s driver.Stmt, conn *Conn, query string) *stmt {
	return &stmt{Stmt: s, conn: conn, query: query}
}

// ExecContext implements driver.StmtExecContext.
func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	var res driver.Result
	err := s.conn.observeQuery(ctx, s.query, func(ctx context.Context) (err error) {
		if execer, ok := s.Stmt.(driver.StmtExecContext); ok {
			res, err = execer.ExecContext(ctx, args)
		} else {
			res, err = s.Stmt.Exec(values(args)) //nolint:staticcheck // drivers without StmtExecContext
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// QueryContext implements driver.StmtQueryContext.
func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	var rows driver.Rows
	err := s.conn.observeQuery(ctx, s.query, func(ctx context.Context) (err error) {
		if queryer, ok := s.Stmt.(driver.StmtQueryContext); ok {
			rows, err = queryer.QueryContext(ctx, args)
		} else {
			rows, err = s.Stmt.Query(values(args)) //nolint:staticcheck // drivers without StmtQueryContext
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CheckNamedValue defers to the statement, then to the connection.
func (s *stmt) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := s.Stmt.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return s.conn.CheckNamedValue(nv)
}

// values drops names and ordinals for the legacy Exec and Query methods.
func values(named []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(named))
	for i := range named {
		out[i] = named[i].Value
	}
	return out
}
