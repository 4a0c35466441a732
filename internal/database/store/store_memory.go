package store

import (
	"context"
	"sync"

	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/sentinel"
)

// InMemoryCatalog is a process-local catalog with the same contract as
// PostgresCatalog. Failures are reported as sentinel errors, which
// classify maps exactly as it maps the server's SQLSTATEs.
type InMemoryCatalog struct {
	mu        sync.RWMutex
	databases map[domain.DatabaseName]struct{}
}

// NewInMemory returns a catalog holding the given databases.
func NewInMemory(existing ...domain.DatabaseName) *InMemoryCatalog {
	c := &InMemoryCatalog{databases: make(map[domain.DatabaseName]struct{}, len(existing))}
	for _, n := range existing {
		c.databases[n] = struct{}{}
	}
	return c
}

func (c *InMemoryCatalog) List(_ context.Context) ([]domain.DatabaseName, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]domain.DatabaseName, 0, len(c.databases))
	for n := range c.databases {
		names = append(names, n)
	}
	return names, nil
}

func (c *InMemoryCatalog) Exists(_ context.Context, name domain.DatabaseName) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.databases[name]
	return ok, nil
}

func (c *InMemoryCatalog) Missing(_ context.Context, names ...domain.DatabaseName) ([]domain.DatabaseName, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var missing []domain.DatabaseName
	for _, n := range names {
		if _, ok := c.databases[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}

func (c *InMemoryCatalog) Create(_ context.Context, name domain.DatabaseName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.databases[name]; ok {
		return sentinel.ErrAlreadyExists
	}
	c.databases[name] = struct{}{}
	return nil
}
