package sql

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// newTracedConn connects through a tracing driver to a go-sqlmock backend.
func newTracedConn(t *testing.T, opts ...Option) (*Conn, sqlmock.Sqlmock, *sdktrace.TracerProvider) {
	t.Helper()

	backend, sqlMock := newSQLMockDriver(t, "postgres")
	reg := NewRegistry()
	require.NoError(t, reg.Register(backend))

	tp, _ := newRecorder(t)
	opts = append([]Option{WithRegistry(reg), WithTracerProvider(tp)}, opts...)
	d := NewDriver(opts...)

	conn, err := d.Connect(context.Background(), "jdbc:tracing:postgres://localhost/app", Properties{"user": "alice"})
	require.NoError(t, err)
	return conn.(*Conn), sqlMock, tp
}

func TestConn_QueryAttributes(t *testing.T) {
	tests := []struct {
		name         string
		opts         []Option
		query        string
		wantContains map[string]string
		wantMissing  []string
	}{
		{
			name:  "given connection metadata, then includes system, user and statement",
			opts:  []Option{WithDBName("app"), WithInstanceName("primary")},
			query: "SELECT * FROM users",
			wantContains: map[string]string{
				"db.system":    "postgres",
				"db.user":      "alice",
				"db.name":      "app",
				"db.instance":  "primary",
				"db.statement": "SELECT * FROM users",
				"db.operation": "SELECT",
			},
		},
		{
			name:  "given sanitizer, then sanitizes statement",
			opts:  []Option{WithQuerySanitizer(DefaultQuerySanitizer)},
			query: "SELECT * FROM users WHERE id = 123",
			wantContains: map[string]string{
				"db.statement": "SELECT * FROM users WHERE id = ?",
			},
		},
		{
			name:         "given DisableQuery, then omits statement",
			opts:         []Option{WithDisableQuery()},
			query:        "SELECT * FROM users",
			wantContains: map[string]string{"db.operation": "SELECT"},
			wantMissing:  []string{"db.statement"},
		},
		{
			name:         "given empty query, then omits statement and operation",
			query:        "",
			wantContains: map[string]string{"db.system": "postgres"},
			wantMissing:  []string{"db.statement", "db.operation", "db.name", "db.instance"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, _, _ := newTracedConn(t, tt.opts...)

			attrs := attrMap(conn.queryAttributes(tt.query))

			assert.Equal(t, conn.ID(), attrs["db.connection.id"])
			for key, want := range tt.wantContains {
				assert.Equal(t, want, attrs[key], "attribute %s", key)
			}
			for _, key := range tt.wantMissing {
				assert.NotContains(t, attrs, key)
			}
		})
	}
}

func TestConn_QueryContext(t *testing.T) {
	tests := []struct {
		name     string
		mockFn   func(sqlmock.Sqlmock)
		wantErr  assert.ErrorAssertionFunc
		wantCode codes.Code
	}{
		{
			name: "given successful query, then returns rows and records span",
			mockFn: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT id FROM users").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
			},
			wantErr:  assert.NoError,
			wantCode: codes.Unset,
		},
		{
			name: "given query error, then returns error and marks span",
			mockFn: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT id FROM users").WillReturnError(assert.AnError)
			},
			wantErr:  assert.Error,
			wantCode: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, sr := newRecorder(t)
			conn, sqlMock, _ := newTracedConn(t, WithTracerProvider(tp))
			tt.mockFn(sqlMock)

			rows, err := conn.QueryContext(context.Background(), "SELECT id FROM users", nil)

			tt.wantErr(t, err)
			if err == nil {
				require.NotNil(t, rows)
			}
			assert.Equal(t, []string{"CONNECT", "SELECT"}, spanNames(sr))
			span := findSpan(t, sr, "SELECT")
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Equal(t, "postgres", attrMap(span.Attributes())["db.system"])
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestConn_ExecContext(t *testing.T) {
	tests := []struct {
		name     string
		mockFn   func(sqlmock.Sqlmock)
		wantErr  assert.ErrorAssertionFunc
		wantCode codes.Code
	}{
		{
			name: "given successful exec, then returns result",
			mockFn: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO users (name) VALUES ($1)").
					WithArgs("alice").
					WillReturnResult(sqlmock.NewResult(7, 1))
			},
			wantErr:  assert.NoError,
			wantCode: codes.Unset,
		},
		{
			name: "given exec error, then returns error unchanged",
			mockFn: func(m sqlmock.Sqlmock) {
				m.ExpectExec("INSERT INTO users (name) VALUES ($1)").
					WithArgs("alice").
					WillReturnError(assert.AnError)
			},
			wantErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, assert.AnError)
			},
			wantCode: codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, sr := newRecorder(t)
			conn, sqlMock, _ := newTracedConn(t, WithTracerProvider(tp))
			tt.mockFn(sqlMock)

			args := []driver.NamedValue{{Ordinal: 1, Value: "alice"}}
			result, err := conn.ExecContext(context.Background(), "INSERT INTO users (name) VALUES ($1)", args)

			tt.wantErr(t, err)
			if err == nil {
				id, _ := result.LastInsertId()
				assert.Equal(t, int64(7), id)
			}
			span := findSpan(t, sr, "INSERT")
			assert.Equal(t, tt.wantCode, span.Status().Code)
			assert.Equal(t, "alice", attrMap(span.Attributes())["db.user"])
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestConn_FallbacksWithoutOptionalInterfaces(t *testing.T) {
	raw := &stubConn{}
	c := newConn(raw, newConfig(WithRegistry(NewRegistry())), "mydb", "")

	t.Run("given conn without ExecerContext, then returns ErrSkip", func(t *testing.T) {
		_, err := c.ExecContext(context.Background(), "DELETE FROM t", nil)
		assert.ErrorIs(t, err, driver.ErrSkip)
	})

	t.Run("given conn without QueryerContext, then returns ErrSkip", func(t *testing.T) {
		_, err := c.QueryContext(context.Background(), "SELECT 1", nil)
		assert.ErrorIs(t, err, driver.ErrSkip)
	})

	t.Run("given conn without Pinger, then ping succeeds", func(t *testing.T) {
		assert.NoError(t, c.Ping(context.Background()))
	})

	t.Run("given conn without SessionResetter, then reset succeeds", func(t *testing.T) {
		assert.NoError(t, c.ResetSession(context.Background()))
	})

	t.Run("given conn without Validator, then is valid", func(t *testing.T) {
		assert.True(t, c.IsValid())
	})

	t.Run("given conn without NamedValueChecker, then defers to default conversion", func(t *testing.T) {
		assert.ErrorIs(t, c.CheckNamedValue(&driver.NamedValue{Value: 1}), driver.ErrSkip)
	})

	t.Run("given conn without BeginTx, then falls back to Begin", func(t *testing.T) {
		tx, err := c.BeginTx(context.Background(), driver.TxOptions{})
		require.NoError(t, err)
		assert.NoError(t, tx.Commit())
	})

	t.Run("given conn without PrepareContext, then falls back to Prepare", func(t *testing.T) {
		_, err := c.PrepareContext(context.Background(), "SELECT 1")
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("given no user, then omits db.user attribute", func(t *testing.T) {
		assert.NotContains(t, attrMap(c.attrs), "db.user")
	})

	t.Run("given close, then closes real connection", func(t *testing.T) {
		require.NoError(t, c.Close())
		assert.True(t, raw.closed)
	})
}

func TestConn_SkippedExecIsNotAnError(t *testing.T) {
	tp, sr := newRecorder(t)
	c := newConn(&skippingConn{}, newConfig(WithRegistry(NewRegistry()), WithTracerProvider(tp)), "mydb", "")

	_, err := c.ExecContext(context.Background(), "DELETE FROM t", nil)

	require.ErrorIs(t, err, driver.ErrSkip)
	span := findSpan(t, sr, "DELETE")
	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Empty(t, span.Events())
}

// skippingConn asks database/sql to prepare instead of executing directly.
type skippingConn struct {
	stubConn
}

func (*skippingConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, driver.ErrSkip
}

func TestConn_Ping(t *testing.T) {
	tp, sr := newRecorder(t)
	backend, _ := newSQLMockDriver(t, "mydb")
	reg := NewRegistry()
	require.NoError(t, reg.Register(backend))
	d := NewDriver(WithRegistry(reg), WithTracerProvider(tp))
	conn, err := d.Connect(context.Background(), "jdbc:tracing:mydb:host", nil)
	require.NoError(t, err)

	err = conn.(*Conn).Ping(context.Background())

	require.NoError(t, err)
	assert.Contains(t, spanNames(sr), "PING")
}

func TestConn_PrepareContext(t *testing.T) {
	conn, sqlMock, _ := newTracedConn(t)
	sqlMock.ExpectPrepare("SELECT name FROM users WHERE id = $1")

	s, err := conn.PrepareContext(context.Background(), "SELECT name FROM users WHERE id = $1")

	require.NoError(t, err)
	require.IsType(t, &stmt{}, s)
	assert.Equal(t, "SELECT name FROM users WHERE id = $1", s.(*stmt).query)
	assert.Same(t, conn, s.(*stmt).conn)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
