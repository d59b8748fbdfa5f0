package sql

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// mockDriver is a registry candidate whose behavior is scripted per test.
type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) AcceptsURL(url string) (bool, error) {
	args := m.Called(url)
	return args.Bool(0), args.Error(1)
}

func (m *mockDriver) Connect(ctx context.Context, url string, props Properties) (driver.Conn, error) {
	args := m.Called(ctx, url, props)
	conn, _ := args.Get(0).(driver.Conn)
	return conn, args.Error(1)
}

// panicDriver panics when asked whether it accepts a URL.
type panicDriver struct{}

func (panicDriver) AcceptsURL(string) (bool, error) { panic("accepts exploded") }

func (panicDriver) Connect(context.Context, string, Properties) (driver.Conn, error) {
	panic("connect must not be reached")
}

// sqlmockDriver serves "jdbc:<scheme>:" URLs with a go-sqlmock connection.
type sqlmockDriver struct {
	scheme string
	dsn    string
	drv    driver.Driver

	lastURL   string
	lastProps Properties
}

func (d *sqlmockDriver) AcceptsURL(url string) (bool, error) {
	return strings.HasPrefix(url, "jdbc:"+d.scheme+":"), nil
}

func (d *sqlmockDriver) Connect(_ context.Context, url string, props Properties) (driver.Conn, error) {
	d.lastURL = url
	d.lastProps = props
	return d.drv.Open(d.dsn)
}

// newSQLMockDriver returns a candidate for scheme backed by a fresh go-sqlmock database.
func newSQLMockDriver(t *testing.T, scheme string) (*sqlmockDriver, sqlmock.Sqlmock) {
	t.Helper()

	dsn := "sqlmock_" + t.Name()
	db, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &sqlmockDriver{scheme: scheme, dsn: dsn, drv: db.Driver()}, mock
}

// newRecorder returns a tracer provider that records ended spans.
func newRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.Emit()
	}
	return out
}

func spanNames(sr *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	return names
}

// findSpan returns the single ended span called name.
func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()

	var found []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == name {
			found = append(found, s)
		}
	}
	require.Len(t, found, 1, "spans named %s", name)
	return found[0]
}
