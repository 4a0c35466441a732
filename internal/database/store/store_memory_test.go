package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/classify"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

func TestInMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory("postgres", "alpha")

	names, err := c.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.DatabaseName{"postgres", "alpha"}, names)

	ok, err := c.Exists(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := c.Missing(ctx, "beta", "alpha", "gamma")
	require.NoError(t, err)
	assert.Equal(t, []domain.DatabaseName{"beta", "gamma"}, missing)

	require.NoError(t, c.Create(ctx, "beta"))
	err = c.Create(ctx, "beta")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, classify.Classify(err))
}

func TestInMemoryCatalog_ConcurrentCreateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory()
	const goroutines = 50

	var wg sync.WaitGroup
	var created, conflicts atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Create(ctx, "contested")
			switch {
			case err == nil:
				created.Add(1)
			case classify.Classify(err) == dErrors.CodeConflict:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(goroutines-1), conflicts.Load())
}
