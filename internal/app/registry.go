package service

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FormRegistry holds mounted forms up to a fixed size, evicting the least
// recently used one.
type FormRegistry struct {
	mu    sync.Mutex
	limit int
	cache *lru.Cache[string, *Form]
}

// NewFormRegistry constructs a registry holding at most limit forms.
func NewFormRegistry(limit int) *FormRegistry {
	if limit < 1 {
		limit = 1
	}
	// New only fails for a non-positive size.
	cache, _ := lru.New[string, *Form](limit)
	return &FormRegistry{limit: limit, cache: cache}
}

// Put adds f and returns the id of the evicted form, if any.
func (r *FormRegistry) Put(f *Form) (evicted string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cache.Contains(f.id) && r.cache.Len() >= r.limit {
		evicted, _, _ = r.cache.GetOldest()
	}
	r.cache.Add(f.id, f)
	return evicted
}

// Get returns the form with id and marks it recently used.
func (r *FormRegistry) Get(id string) (*Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Get(id)
}

// Delete removes the form with id.
func (r *FormRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
}

// Len returns the number of forms held.
func (r *FormRegistry) Len() int {
	return r.cache.Len()
}
