package memory

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// LockRegistry serializes tally runs per election within one process. Mutex
// entries are created on first use and kept for the process lifetime; the
// number of elections is small enough that no eviction is needed.
type LockRegistry struct {
	locks *xsync.Map[string, *sync.Mutex]
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: xsync.NewMap[string, *sync.Mutex]()}
}

// Acquire takes the election's lock without blocking. ok is false when a
// concurrent run already holds it.
func (r *LockRegistry) Acquire(electionID string) (release func(), ok bool) {
	mu, _ := r.locks.LoadOrStore(electionID, &sync.Mutex{})
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

var _ ports.TallyLock = (*LockRegistry)(nil)
