package registry

import (
	"sync"

	"github.com/pkg/errors"
)

var dfRegistries = &Registry{m: make(map[string]interface{})}

var (
	ErrAlreadyExists = errors.New("already registered")
	ErrNotExists     = errors.New("not registered")
)

// MustGet returns the named registry, creating it when absent.
// the codec and compressor tables share this mechanism.
func MustGet(name string) *Registry {
	dfRegistries.mu.Lock()
	defer dfRegistries.mu.Unlock()

	if v, ok := dfRegistries.m[name]; ok {
		return v.(*Registry)
	}

	r := New()
	dfRegistries.m[name] = r
	return r
}

func New() *Registry {
	return &Registry{m: make(map[string]interface{})}
}

type Registry struct {
	mu sync.Mutex

	m map[string]interface{}
}

func (r *Registry) Register(name string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.m[name]; ok {
		return errors.Wrap(ErrAlreadyExists, name)
	}

	r.m[name] = v
	return nil
}

func (r *Registry) Get(name string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.m[name]
	return v, ok
}

func (r *Registry) MustGet(name string) interface{} {
	v, ok := r.Get(name)
	if !ok {
		panic(errors.Wrap(ErrNotExists, name))
	}

	return v
}
