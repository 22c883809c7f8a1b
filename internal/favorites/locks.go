package favorites

import "sync"

// Locks is a per-identity mutex. All stores sharing one Locks value serialize
// read-modify-write cycles against the same identity's durable record.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*identityLock
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*identityLock)}
}

// Lock blocks until identity is free and returns the matching unlock func.
// Entries are dropped once nobody holds or waits for them.
func (l *Locks) Lock(identity string) (unlock func()) {
	l.mu.Lock()
	il, ok := l.locks[identity]
	if !ok {
		il = &identityLock{}
		l.locks[identity] = il
	}
	il.refs++
	l.mu.Unlock()

	il.mu.Lock()

	return func() {
		il.mu.Unlock()

		l.mu.Lock()
		il.refs--
		if il.refs == 0 {
			delete(l.locks, identity)
		}
		l.mu.Unlock()
	}
}

// held reports how many identities currently have holders or waiters.
func (l *Locks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
