package page

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks the pages of connected visitors.
type Registry struct {
	layout Layout
	buffer int

	mu    sync.RWMutex
	pages map[string]*Page
}

// NewRegistry validates layout once so every page opened later satisfies it.
func NewRegistry(layout Layout, buffer int) (*Registry, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Registry{layout: layout, buffer: buffer, pages: map[string]*Page{}}, nil
}

// Open creates and registers a new page.
func (r *Registry) Open() (*Page, error) {
	p, err := New(uuid.NewString(), r.layout, r.buffer)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.pages[p.ID()] = p
	r.mu.Unlock()
	return p, nil
}

func (r *Registry) Get(id string) (*Page, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pages[id]
	return p, ok
}

// Close closes and forgets a page.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	p, ok := r.pages[id]
	delete(r.pages, id)
	r.mu.Unlock()
	if ok {
		p.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

func (r *Registry) Layout() Layout { return r.layout }
