package camoview

import (
	"context"
)

// ResourceKey identifies a remote image. It is also the name of the cache file.
type ResourceKey string

// ByteCache maps resource keys to raw bytes. Implementations must be safe for concurrent use.
type ByteCache interface {
	// Lookup returns the cached bytes. Any read failure is reported as a miss.
	Lookup(key ResourceKey) (data []byte, ok bool)
	Store(key ResourceKey, data []byte) error
	// Clear removes all entries.
	Clear() error
}

// Fetcher performs a blocking GET request.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}
