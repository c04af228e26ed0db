package tools

import (
	"iter"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "tools")

// Registry holds the tools available to the model, keyed by unique name.
// It also owns the state of the tools registered in it,
// which is released by Close.
type Registry struct {
	lock    sync.RWMutex
	byName  map[string]*Descriptor
	ordered []*Descriptor
	closers []func() error
}

// NewRegistry returns an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
	}
}

// Register adds the tool.
// It fails if a tool with the same name is already registered,
// in which case the existing entry is not changed.
func (r *Registry) Register(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byName[d.Name]; ok {
		return errors.Mark(errors.Newf("tool %s already registered", d.Name), ErrAlreadyRegistered)
	}
	r.byName[d.Name] = d
	r.ordered = append(r.ordered, d)

	logger.KV(xlog.DEBUG, "status", "registered", "tool", d.Name, "params", len(d.Params))
	return nil
}

// MustRegister registers the tools, and panics on error
func (r *Registry) MustRegister(list ...*Descriptor) {
	for _, d := range list {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the tool by its exact name
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	d, ok := r.byName[name]
	if !ok {
		return nil, errors.Mark(errors.Newf("tool %s not found", name), ErrToolNotFound)
	}
	return d, nil
}

// List returns the registered tools in registration order.
// The sequence can be iterated multiple times.
func (r *Registry) List() iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		r.lock.RLock()
		list := slices.Clone(r.ordered)
		r.lock.RUnlock()

		for _, d := range list {
			if !yield(d) {
				return
			}
		}
	}
}

// Names returns the names of registered tools in registration order
func (r *Registry) Names() []string {
	var names []string
	for d := range r.List() {
		names = append(names, d.Name)
	}
	return names
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.ordered)
}

// OnClose adds a function to release the state owned by the tools,
// the functions are called by Close in reverse order.
func (r *Registry) OnClose(fn func() error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closers = append(r.closers, fn)
}

// Close releases the state of the registered tools
func (r *Registry) Close() error {
	r.lock.Lock()
	closers := r.closers
	r.closers = nil
	r.lock.Unlock()

	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i](); cerr != nil {
			err = errors.CombineErrors(err, cerr)
		}
	}
	return err
}
