package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/memory"
)

type failingStore struct{ calls int }

func (f *failingStore) Append(context.Context, audit.Event) error {
	f.calls++
	return errors.New("sink unavailable")
}

func TestWorker_DrainsUntilInboxClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 3)
	inbox <- audit.Event{Action: string(audit.EventDatabaseCreated)}
	inbox <- audit.Event{Action: string(audit.EventDatabaseMigrated)}
	close(inbox)

	err := NewWorker(store, inbox).Run(context.Background())
	require.NoError(t, err)

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWorker_ContinuesAfterStoreFailure(t *testing.T) {
	store := &failingStore{}
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Action: string(audit.EventActivity)}
	inbox <- audit.Event{Action: string(audit.EventActivity)}
	close(inbox)

	require.NoError(t, NewWorker(store, inbox).Run(context.Background()))
	assert.Equal(t, 2, store.calls)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	inbox := make(chan audit.Event)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewWorker(memory.NewInMemoryStore(), inbox).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
