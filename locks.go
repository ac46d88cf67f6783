package rookery

import (
	"context"
	"fmt"
	"sync"
)

// LockMode is the access a lock grants.
type LockMode int

const (
	// Shared locks may be held by many readers at once.
	Shared LockMode = iota
	// Exclusive locks exclude every overlapping lock.
	Exclusive
)

// LockRequest names one path to lock. A Subtree lock also covers every
// descendant of Path, including ones that do not exist yet.
type LockRequest struct {
	Path    Path
	Mode    LockMode
	Subtree bool
}

// ReadLock is a shared lock on a single node.
func ReadLock(p Path) LockRequest { return LockRequest{Path: p, Mode: Shared} }

// WriteLock is an exclusive lock on a single node.
func WriteLock(p Path) LockRequest { return LockRequest{Path: p, Mode: Exclusive} }

// TreeLock is an exclusive lock on p and everything below it.
func TreeLock(p Path) LockRequest { return LockRequest{Path: p, Mode: Exclusive, Subtree: true} }

func (l LockRequest) overlaps(o LockRequest) bool {
	if l.Path == o.Path {
		return true
	}
	return (l.Subtree && l.Path.Contains(o.Path)) || (o.Subtree && o.Path.Contains(l.Path))
}

func (l LockRequest) conflicts(o LockRequest) bool {
	if l.Mode == Shared && o.Mode == Shared {
		return false
	}
	return l.overlaps(o)
}

// LockManager hands out path locks. A caller asks for its whole lock set in a
// single Acquire call and gets all of it or none of it, so two operations
// over overlapping subtrees can never each hold half of what the other needs.
type LockManager struct {
	mu      sync.Mutex
	held    map[uint64][]LockRequest
	nextID  uint64
	changed chan struct{}
}

// NewLockManager returns an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		held:    make(map[uint64][]LockRequest),
		changed: make(chan struct{}),
	}
}

// Acquire blocks until every request can be granted together, then grants
// them. The returned function releases the set; calling it more than once is
// harmless. Acquire gives up when ctx is done.
func (m *LockManager) Acquire(ctx context.Context, reqs ...LockRequest) (func(), error) {
	for {
		m.mu.Lock()
		if !m.blocked(reqs) {
			id := m.nextID
			m.nextID++
			m.held[id] = append([]LockRequest(nil), reqs...)
			m.mu.Unlock()

			var once sync.Once
			return func() { once.Do(func() { m.release(id) }) }, nil
		}
		wait := m.changed
		m.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		}
	}
}

func (m *LockManager) blocked(reqs []LockRequest) bool {
	for _, set := range m.held {
		for _, h := range set {
			for _, r := range reqs {
				if r.conflicts(h) {
					return true
				}
			}
		}
	}
	return false
}

func (m *LockManager) release(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.held, id)
	close(m.changed)
	m.changed = make(chan struct{})
}
