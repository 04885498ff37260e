package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across processes. The watcher holds one
// for the duration of a polling cycle so that only one process writes the ledger.
type DistributedLock interface {
	// Acquire attempts to take a named lock that expires after ttl.
	// Returns false if another holder has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release drops the lock if held by this instance. Safe to call when it is not.
	Release(ctx context.Context, name string) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
