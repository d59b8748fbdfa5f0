package sql

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the instruments recorded by traced connections.
type metrics struct {
	// operationDuration covers queries, execs, BEGIN and PING.
	operationDuration metric.Float64Histogram

	// connectDuration covers driver resolution plus the delegate connect.
	connectDuration metric.Float64Histogram
}

var (
	operationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10}
	connectBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

func newMetrics(meter metric.Meter) (*metrics, error) {
	operationDuration, err := meter.Float64Histogram(
		"db.client.operation.duration",
		metric.WithDescription("Duration of database client operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(operationBuckets...),
	)
	if err != nil {
		return nil, err
	}

	connectDuration, err := meter.Float64Histogram(
		"db.client.connection.create_time",
		metric.WithDescription("Time to resolve a driver and open a real connection in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(connectBuckets...),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{operationDuration: operationDuration, connectDuration: connectDuration}, nil
}

func (m *metrics) recordQueryDuration(
	ctx context.Context,
	duration time.Duration,
	operation string,
	attrs []attribute.KeyValue,
	err error,
) {
	if m == nil || m.operationDuration == nil {
		return
	}

	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all, attrs...)
	if operation != "" {
		all = append(all, attribute.String("db.operation", operation))
	}
	all = append(all, statusAttribute(err))

	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(all...))
}

func (m *metrics) recordConnectDuration(
	ctx context.Context,
	duration time.Duration,
	attrs []attribute.KeyValue,
	err error,
) {
	if m == nil || m.connectDuration == nil {
		return
	}

	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attrs...)
	all = append(all, statusAttribute(err))

	m.connectDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(all...))
}

func statusAttribute(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "error")
	}
	return attribute.String("status", "ok")
}

// poolGauge is one sql.DBStats field exported as an observable instrument.
type poolGauge struct {
	name        string
	description string
	counter     bool
	value       func(sql.DBStats) int64
}

var poolGauges = []poolGauge{
	{
		name:        "db.client.connections.open",
		description: "Number of open connections in the pool",
		value:       func(s sql.DBStats) int64 { return int64(s.OpenConnections) },
	},
	{
		name:        "db.client.connections.idle",
		description: "Number of idle connections in the pool",
		value:       func(s sql.DBStats) int64 { return int64(s.Idle) },
	},
	{
		name:        "db.client.connections.used",
		description: "Number of connections currently in use",
		value:       func(s sql.DBStats) int64 { return int64(s.InUse) },
	},
	{
		name:        "db.client.connections.max",
		description: "Maximum number of open connections allowed",
		value:       func(s sql.DBStats) int64 { return int64(s.MaxOpenConnections) },
	},
	{
		name:        "db.client.connections.wait_count",
		description: "Total number of waits for a connection",
		counter:     true,
		value:       func(s sql.DBStats) int64 { return s.WaitCount },
	},
	{
		name:        "db.client.connections.closed.max_idle",
		description: "Connections closed because of SetMaxIdleConns",
		counter:     true,
		value:       func(s sql.DBStats) int64 { return s.MaxIdleClosed },
	},
	{
		name:        "db.client.connections.closed.max_idle_time",
		description: "Connections closed because of SetConnMaxIdleTime",
		counter:     true,
		value:       func(s sql.DBStats) int64 { return s.MaxIdleTimeClosed },
	},
	{
		name:        "db.client.connections.closed.max_lifetime",
		description: "Connections closed because of SetConnMaxLifetime",
		counter:     true,
		value:       func(s sql.DBStats) int64 { return s.MaxLifetimeClosed },
	},
}

// registerPoolMetrics observes db.Stats() on every collection.
// Pool statistics only exist on *sql.DB, so they cannot be recorded from a connection.
func registerPoolMetrics(meter metric.Meter, db *sql.DB, attrs []attribute.KeyValue) error {
	observables := make([]metric.Observable, 0, len(poolGauges)+1)
	instruments := make([]metric.Int64Observable, 0, len(poolGauges))

	for _, g := range poolGauges {
		var (
			inst metric.Int64Observable
			err  error
		)
		if g.counter {
			inst, err = meter.Int64ObservableCounter(g.name,
				metric.WithDescription(g.description), metric.WithUnit("{connection}"))
		} else {
			inst, err = meter.Int64ObservableGauge(g.name,
				metric.WithDescription(g.description), metric.WithUnit("{connection}"))
		}
		if err != nil {
			return err
		}
		instruments = append(instruments, inst)
		observables = append(observables, inst)
	}

	waitDuration, err := meter.Float64ObservableCounter(
		"db.client.connections.wait_duration",
		metric.WithDescription("Total time waited for connections in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}
	observables = append(observables, waitDuration)

	opt := metric.WithAttributes(attrs...)
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := db.Stats()
		for i, g := range poolGauges {
			o.ObserveInt64(instruments[i], g.value(stats), opt)
		}
		o.ObserveFloat64(waitDuration, stats.WaitDuration.Seconds(), opt)
		return nil
	}, observables...)
	return err
}

// RecordPoolMetrics exports db.Stats() as observable instruments on meter.
//
// When db was opened through a TracingDriver, its db.name and db.instance
// attributes are added ahead of attrs.
//
// Example:
//
//	db, _ := sentinelsql.Open("jdbc:tracing:postgres://localhost/mydb", nil,
//	    sentinelsql.WithDBName("mydb"),
//	)
//	err := sentinelsql.RecordPoolMetrics(db, otel.GetMeterProvider().Meter("myapp"))
func RecordPoolMetrics(db *sql.DB, meter metric.Meter, attrs ...attribute.KeyValue) error {
	if drv, ok := db.Driver().(*TracingDriver); ok && drv.cfg != nil {
		attrs = append(drv.cfg.baseAttributes(), attrs...)
	}
	return registerPoolMetrics(meter, db, attrs)
}
