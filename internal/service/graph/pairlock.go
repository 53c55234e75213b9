package graph

import (
	"sync"

	"uk.co.dudmesh.socialgraph/internal/model"
)

type pairKey struct {
	low, high model.UserID
}

func pairOf(a, b model.UserID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

type pairLock struct {
	sync.Mutex
	refs int
}

// pairLocks serialises work on an unordered pair of users. Entries are
// dropped once nobody holds or waits for them.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*pairLock
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[pairKey]*pairLock)}
}

func (p *pairLocks) lock(a, b model.UserID) (unlock func()) {
	key := pairOf(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}

func (p *pairLocks) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
