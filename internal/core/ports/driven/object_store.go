package driven

import (
	"context"
	"io"
)

// ObjectStore is the source of documents to ingest.
type ObjectStore interface {
	// List returns all keys under prefix in listing order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Get opens the object for reading. The caller closes the reader.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
