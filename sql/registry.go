package sql

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
)

// Driver is a connection candidate held by a Registry.
// A Driver reports whether it can serve a URL and, if so, opens a connection for it.
type Driver interface {
	// AcceptsURL reports whether the driver can open a connection for url.
	AcceptsURL(url string) (bool, error)

	// Connect opens a connection for url.
	Connect(ctx context.Context, url string, props Properties) (driver.Conn, error)
}

// PropertyInfoer is implemented by drivers that describe the properties they understand.
type PropertyInfoer interface {
	PropertyInfo(url string, props Properties) ([]PropertyInfo, error)
}

// Registry is an ordered set of Driver candidates.
// Registration order is priority order: FindMatching returns the first driver
// that accepts a URL.
type Registry interface {
	Register(d Driver) error
	Deregister(d Driver) bool
	Drivers() []Driver
	FindMatching(url string) (Driver, error)
}

// DefaultRegistry is the process-wide registry.
// The package registers its own TracingDriver here at init.
var DefaultRegistry Registry = NewRegistry()

// RegistryOption configures a registry created by NewRegistry.
type RegistryOption func(*driverRegistry)

// WithRegistryLogger sets the logger used to report swallowed AcceptsURL failures.
func WithRegistryLogger(l zerolog.Logger) RegistryOption {
	return func(r *driverRegistry) {
		r.logger = l
	}
}

// driverRegistry is a Registry backed by a slice guarded by a RWMutex.
// Probing happens on snapshots, outside the lock.
type driverRegistry struct {
	mu      sync.RWMutex
	drivers []Driver
	logger  zerolog.Logger
}

// NewRegistry creates an empty Registry.
//
// Example:
//
//	reg := sentinelsql.NewRegistry()
//	_ = reg.Register(drivers.Postgres())
//	db, _ := sentinelsql.Open("jdbc:tracing:postgres://localhost/app", nil,
//	    sentinelsql.WithRegistry(reg),
//	)
func NewRegistry(opts ...RegistryOption) Registry {
	r := &driverRegistry{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends d to the registry.
// Registering a driver that is already present is a no-op.
func (r *driverRegistry) Register(d Driver) error {
	if isNil(d) {
		return ErrNilDriver
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(d) >= 0 {
		return nil
	}
	r.drivers = append(r.drivers, d)
	return nil
}

// Deregister removes d from the registry and reports whether it was present.
func (r *driverRegistry) Deregister(d Driver) bool {
	if isNil(d) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(d)
	if i < 0 {
		return false
	}
	r.drivers = append(r.drivers[:i:i], r.drivers[i+1:]...)
	return true
}

// Drivers returns a snapshot of the registered drivers in registration order.
func (r *driverRegistry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Driver, len(r.drivers))
	copy(out, r.drivers)
	return out
}

// FindMatching returns the first registered driver that accepts url.
// AcceptsURL errors and panics are treated as "does not accept" and the scan continues.
func (r *driverRegistry) FindMatching(url string) (Driver, error) {
	for i, d := range r.Drivers() {
		ok, err := safeAccepts(d, url)
		if err != nil {
			r.logger.Debug().
				Err(err).
				Int("index", i).
				Str("driver", fmt.Sprintf("%T", d)).
				Msg("driver accepts check failed, skipping")
			continue
		}
		if ok {
			r.logger.Debug().
				Int("index", i).
				Str("driver", fmt.Sprintf("%T", d)).
				Msg("driver resolved")
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w %s", ErrNoDriver, url)
}

// indexOf must be called with r.mu held.
func (r *driverRegistry) indexOf(d Driver) int {
	if !reflect.TypeOf(d).Comparable() {
		return -1
	}
	for i, existing := range r.drivers {
		if reflect.TypeOf(existing) == reflect.TypeOf(d) && existing == d {
			return i
		}
	}
	return -1
}

// safeAccepts calls d.AcceptsURL, converting a panic into an error.
func safeAccepts(d Driver, url string) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			err = fmt.Errorf("accepts url panicked: %v", rec)
		}
	}()
	return d.AcceptsURL(url)
}

func isNil(d Driver) bool {
	if d == nil {
		return true
	}
	v := reflect.ValueOf(d)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
