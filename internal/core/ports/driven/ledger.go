package driven

import "context"

// Ledger is the append-only set of source keys already dispatched for ingestion.
// Only one writer may use a ledger at a time.
type Ledger interface {
	// Load returns the set of dispatched keys. A missing ledger is empty.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Append records a key as dispatched.
	Append(ctx context.Context, key string) error
}
