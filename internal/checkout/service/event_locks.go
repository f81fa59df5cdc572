package service

import "sync"

// eventLocks hands out one mutex per event so capacity checks on different
// events never wait on each other. Entries are dropped once nobody holds or
// waits on them.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	sync.Mutex
	refs int
}

// lock blocks until key is free and returns its unlock func.
func (l *eventLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*eventLock)
	}
	el, ok := l.locks[key]
	if !ok {
		el = &eventLock{}
		l.locks[key] = el
	}
	el.refs++
	l.mu.Unlock()

	el.Lock()
	return func() {
		el.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
