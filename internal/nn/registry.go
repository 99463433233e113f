package nn

import (
	"errors"
	"fmt"
	"sync"
)

var ErrModelMissing = errors.New("model not found for appliance")

// Registry maps appliance names to their trained networks. Models are
// created lazily on first sight and retrained in place afterwards; insertion
// order is preserved so inference output follows training order. The
// registry never evicts.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	models map[string]*SeqToPoint
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*SeqToPoint)}
}

// GetOrCreate returns the existing model for name, or builds, stores, and
// returns a fresh one. The second result reports whether the model already
// existed.
func (r *Registry) GetOrCreate(name string, build func() *SeqToPoint) (*SeqToPoint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.models[name]; ok {
		return m, true
	}
	m := build()
	r.models[name] = m
	r.names = append(r.names, name)
	return m, false
}

func (r *Registry) Get(name string) (*SeqToPoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[name]
	return m, ok
}

// Names returns the appliance names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.names...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.models)
}

// ReplaceAll swaps the entire registry for externally supplied models, e.g.
// when loading trained models before inference. Every name in order must
// have a model.
func (r *Registry) ReplaceAll(order []string, models map[string]*SeqToPoint) error {
	if len(order) != len(models) {
		return fmt.Errorf("order lists %d names for %d models", len(order), len(models))
	}
	for _, name := range order {
		if models[name] == nil {
			return fmt.Errorf("%w: %s", ErrModelMissing, name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.names = append([]string(nil), order...)
	r.models = make(map[string]*SeqToPoint, len(models))
	for name, m := range models {
		r.models[name] = m
	}
	return nil
}
