package rookery_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sagarc03/rookery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManager_SharedLocksCoexist(t *testing.T) {
	m := rookery.NewLockManager()
	ctx := context.Background()

	r1, err := m.Acquire(ctx, rookery.ReadLock("a"))
	require.NoError(t, err)
	r2, err := m.Acquire(ctx, rookery.ReadLock("a"))
	require.NoError(t, err)

	r1()
	r2()
	assertReleased(t, m)
}

// assertReleased fails unless a lock over the whole tree can be taken, which
// only happens once every other lock set is gone.
func assertReleased(t *testing.T, m *rookery.LockManager) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	release, err := m.Acquire(ctx, rookery.TreeLock(rookery.Root))
	require.NoError(t, err, "locks still held")
	release()
}

func TestLockManager_Conflicts(t *testing.T) {
	tests := []struct {
		name     string
		held     rookery.LockRequest
		wanted   rookery.LockRequest
		conflict bool
	}{
		{name: "write blocks read on same node", held: rookery.WriteLock("a"), wanted: rookery.ReadLock("a"), conflict: true},
		{name: "read blocks write on same node", held: rookery.ReadLock("a"), wanted: rookery.WriteLock("a"), conflict: true},
		{name: "write on sibling is free", held: rookery.WriteLock("a"), wanted: rookery.WriteLock("b"), conflict: false},
		{name: "node lock does not cover children", held: rookery.WriteLock("a"), wanted: rookery.WriteLock("a/b"), conflict: false},
		{name: "tree lock covers descendants", held: rookery.TreeLock("a"), wanted: rookery.ReadLock("a/b/c"), conflict: true},
		{name: "descendant lock blocks tree lock", held: rookery.ReadLock("a/b"), wanted: rookery.TreeLock("a"), conflict: true},
		{name: "tree lock ignores prefix sibling", held: rookery.TreeLock("a"), wanted: rookery.WriteLock("ab"), conflict: false},
		{name: "root tree lock covers everything", held: rookery.TreeLock(rookery.Root), wanted: rookery.ReadLock("x"), conflict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := rookery.NewLockManager()
			release, err := m.Acquire(context.Background(), tt.held)
			require.NoError(t, err)
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			r, err := m.Acquire(ctx, tt.wanted)
			if tt.conflict {
				assert.ErrorIs(t, err, context.DeadlineExceeded)
				return
			}
			require.NoError(t, err)
			r()
		})
	}
}

func TestLockManager_WaitsForRelease(t *testing.T) {
	m := rookery.NewLockManager()
	release, err := m.Acquire(context.Background(), rookery.TreeLock("a"))
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := m.Acquire(context.Background(), rookery.WriteLock("a/b"))
		if err == nil {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquired while conflicting lock held")
	case <-time.After(20 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not granted after release")
	}
}

func TestLockManager_ReleaseIsIdempotent(t *testing.T) {
	m := rookery.NewLockManager()
	release, err := m.Acquire(context.Background(), rookery.WriteLock("a"))
	require.NoError(t, err)

	release()
	release()
	assertReleased(t, m)
}

func TestLockManager_CrossedMovesDoNotDeadlock(t *testing.T) {
	m := rookery.NewLockManager()
	var wg sync.WaitGroup
	var done atomic.Int32

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := m.Acquire(context.Background(), rookery.TreeLock("a"), rookery.TreeLock("b"))
			if err == nil {
				done.Add(1)
				r()
			}
		}()
		go func() {
			defer wg.Done()
			r, err := m.Acquire(context.Background(), rookery.TreeLock("b"), rookery.TreeLock("a"))
			if err == nil {
				done.Add(1)
				r()
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock")
	}
	assert.Equal(t, int32(100), done.Load())
}
