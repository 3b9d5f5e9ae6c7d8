package sqlsession

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/exp/slices"
)

// Registry holds the databases of an application by name, one of which
// may be registered as the default.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	databases map[string]*Database
	dflt      string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{databases: map[string]*Database{}}
}

// Register adds a database to the registry with the specified name.
//
// ErrDatabaseAlreadyRegistered is returned if a database is already
// registered with the same name.
func (r *Registry) Register(name string, d *Database) error {
	if d == nil {
		return ErrDatabaseRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.databases[name]; ok {
		return fmt.Errorf("%w: %s", ErrDatabaseAlreadyRegistered, name)
	}
	r.databases[name] = d

	return nil
}

// RegisterDefault adds a database to the registry with the specified name
// and makes it the default database, replacing any existing default.
func (r *Registry) RegisterDefault(name string, d *Database) error {
	if err := r.Register(name, d); err != nil {
		return err
	}

	r.mu.Lock()
	r.dflt = name
	r.mu.Unlock()

	return nil
}

// Database returns the database registered with the specified name.
func (r *Registry) Database(name string) (*Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.databases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotRegistered, name)
	}
	return d, nil
}

// Default returns the default database.
func (r *Registry) Default() (*Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dflt == "" {
		return nil, ErrNoDefaultDatabase
	}
	return r.databases[r.dflt], nil
}

// Names returns the names of the registered databases in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames()
}

// Scope returns a context carrying a new session of the named database,
// or of the default database if name is empty, together with a func
// which closes the session.  The session connects when first used; the
// session is retrieved from the context using SessionFromContext.
func (r *Registry) Scope(ctx context.Context, name string) (context.Context, func() error, error) {
	var d *Database
	var err error

	if name == "" {
		d, err = r.Default()
	} else {
		d, err = r.Database(name)
	}
	if err != nil {
		return ctx, nil, err
	}

	s := d.NewSession()
	return ContextWithSession(ctx, s), s.Close, nil
}

// Close closes every registered database and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := []error{}
	for _, name := range r.sortedNames() {
		if err := r.databases[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	r.databases = map[string]*Database{}
	r.dflt = ""

	return errors.Join(errs...)
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.databases))
	for name := range r.databases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Named tags a Database with a type, so that distinct databases are
// distinct types:
//
//	type Primary struct{}
//	type Reporting struct{}
//
//	func NewReport(db sqlsession.Named[Reporting]) *Report
//
// The tag has no runtime behavior.
type Named[N any] struct {
	*Database
}

// NameOf returns the registry name of the tag type N.
func NameOf[N any]() string {
	return reflect.TypeFor[N]().Name()
}

// RegisterNamed adds a database to the registry using the name of the tag
// type N.
func RegisterNamed[N any](r *Registry, d *Database) error {
	return r.Register(NameOf[N](), d)
}

// Resolve returns the database registered using the name of the tag type
// N.
func Resolve[N any](r *Registry) (Named[N], error) {
	d, err := r.Database(NameOf[N]())
	if err != nil {
		return Named[N]{}, err
	}
	return Named[N]{d}, nil
}
