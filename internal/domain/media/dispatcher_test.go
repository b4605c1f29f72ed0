package media

import (
	"context"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio/internal/database"
)

func TestDispatcherProcessesEnqueuedItems(t *testing.T) {
	dsn := fmt.Sprintf("file:media_dispatch_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Media{}))

	repo := NewRepository(db)
	svc := NewService(repo, &stubStore{})

	d := NewDispatcher(svc, 2)
	d.Start(context.Background())
	defer d.Stop()

	ctx := context.Background()
	var ids []string
	for i := 0; i < 5; i++ {
		m, err := svc.Upload(ctx, fmt.Sprintf("p%d.jpg", i), encodeJPEG(t, 400, 300), Metadata{})
		require.NoError(t, err)
		ids = append(ids, m.ID)
		d.Enqueue(m.ID)
	}

	require.Eventually(t, func() bool {
		for _, id := range ids {
			m, err := repo.GetByID(ctx, id)
			if err != nil || m.Status != StatusCompleted {
				return false
			}
		}
		return true
	}, 10*time.Second, 50*time.Millisecond)
}

func TestDispatcherSkipsAlreadyClaimedItems(t *testing.T) {
	dsn := fmt.Sprintf("file:media_dispatch_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Media{}))

	repo := NewRepository(db)
	store := &stubStore{}
	svc := NewService(repo, store)

	ctx := context.Background()
	m, err := svc.Upload(ctx, "p.jpg", encodeJPEG(t, 400, 300), Metadata{})
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, m.ID))
	storedBefore := len(store.stored)

	d := NewDispatcher(svc, 1)
	d.Start(context.Background())
	defer d.Stop()

	// Completed items are not claimable; the duplicate enqueue is a no-op.
	d.Enqueue(m.ID)
	time.Sleep(100 * time.Millisecond)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Len(t, store.stored, storedBefore)
}

func TestDispatcherStopReleasesOverflowEnqueues(t *testing.T) {
	dsn := fmt.Sprintf("file:media_dispatch_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Media{}))

	svc := NewService(NewRepository(db), &stubStore{})
	d := NewDispatcher(svc, 1)

	// No workers running: fill the buffer so further enqueues overflow into
	// handoff goroutines.
	for i := 0; i < queueDepth; i++ {
		d.Enqueue(fmt.Sprintf("fill-%d", i))
	}
	base := runtime.NumGoroutine()
	for i := 0; i < 4; i++ {
		d.Enqueue(fmt.Sprintf("overflow-%d", i))
	}

	d.Stop()

	// The handoff goroutines must give up instead of blocking forever.
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= base
	}, 5*time.Second, 20*time.Millisecond)
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	dsn := fmt.Sprintf("file:media_dispatch_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Media{}))

	svc := NewService(NewRepository(db), &stubStore{})
	d := NewDispatcher(svc, 1)
	d.Start(context.Background())
	d.Stop()
	d.Stop()
}
