package contracts

import (
	"sync"

	"github.com/google/uuid"

	"warranty/internal/warranty"
)

// entry guards one contract. Claims and status of a contract only change
// while its lock is held; distinct contracts never wait on each other.
type entry struct {
	mu       sync.Mutex
	contract *warranty.Contract
	version  int
}

// Repository keeps contracts in memory. The map lock only protects
// membership; contract state is protected by the per-entry lock.
type Repository struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

func NewRepository() *Repository {
	return &Repository{entries: make(map[uuid.UUID]*entry)}
}

// Add stores a new contract at the given event version.
func (r *Repository) Add(c *warranty.Contract, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[c.ID()]; ok {
		return ErrContractExists
	}
	r.entries[c.ID()] = &entry{contract: c.Clone(), version: version}
	return nil
}

// Get returns a snapshot the caller may freely mutate.
func (r *Repository) Get(id uuid.UUID) (*warranty.Contract, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.contract.Clone(), nil
}

// Update runs fn on a working copy while holding the contract's lock. The
// copy replaces the stored contract only when fn succeeds; fn returns the
// new event version.
func (r *Repository) Update(id uuid.UUID, fn func(c *warranty.Contract, version int) (int, error)) (*warranty.Contract, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.contract.Clone()
	version, err := fn(working, e.version)
	if err != nil {
		return nil, err
	}
	e.contract = working
	e.version = version
	return working.Clone(), nil
}

// Len reports how many contracts are stored.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Repository) lookup(id uuid.UUID) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrContractNotFound
	}
	return e, nil
}
