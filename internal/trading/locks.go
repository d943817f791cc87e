// Package trading implements the intraday buy (C10) and sell (C11)
// tasks: periodic ticks that reconcile account state against the
// snapshot store and place limit orders through the brokerage adapter.
package trading

import "sync"

// TickerLocks hands out per-ticker advisory locks so a buy tick and a
// sell tick for the same code never interleave (§5). A contended
// TryLock means the later tick drops rather than queues, matching the
// scheduler's "dropped, not queued" policy for overlapping ticks.
type TickerLocks struct {
	locks sync.Map // code -> *sync.Mutex
}

func (t *TickerLocks) lockFor(code string) *sync.Mutex {
	v, _ := t.locks.LoadOrStore(code, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// TryLock attempts to acquire the advisory lock for code, reporting
// whether it succeeded. Callers must call Unlock only after a
// successful TryLock.
func (t *TickerLocks) TryLock(code string) bool {
	return t.lockFor(code).TryLock()
}

func (t *TickerLocks) Unlock(code string) {
	t.lockFor(code).Unlock()
}
