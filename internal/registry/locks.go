package registry

import "sync"

// roomLocks hands out exactly one mutex per room id. LoadOrStore keeps two
// concurrent first accesses to the same room from minting two distinct
// locks; the check-then-insert pattern over a plain map would race.
type roomLocks struct {
	locks sync.Map // room id -> *sync.Mutex
}

func (rl *roomLocks) get(roomID string) *sync.Mutex {
	if m, ok := rl.locks.Load(roomID); ok {
		return m.(*sync.Mutex)
	}
	m, _ := rl.locks.LoadOrStore(roomID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// acquire returns roomID's mutex in the locked state. A waiter can win a
// mutex that was dropped (and possibly replaced) while it was blocked; the
// identity re-check catches that and retries against the current mutex, so
// two goroutines can never hold distinct locks for the same room. Callers
// that drop the mapping must do so while still holding the mutex.
func (rl *roomLocks) acquire(roomID string) *sync.Mutex {
	for {
		m := rl.get(roomID)
		m.Lock()
		if cur, ok := rl.locks.Load(roomID); ok && cur.(*sync.Mutex) == m {
			return m
		}
		m.Unlock()
	}
}

func (rl *roomLocks) drop(roomID string) {
	rl.locks.Delete(roomID)
}
