package ports

import "context"

// Storage is durable key-value storage shared by every client instance of
// the same user agent. Each key has exactly one writing component.
type Storage interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// StorageEvent describes a write made to shared storage.
type StorageEvent struct {
	Key    string
	Origin string // instance id of the writer
}

// StorageWatcher delivers writes made by OTHER instances. An instance never
// receives events for its own writes.
type StorageWatcher interface {
	// Watch calls fn for every foreign write until stop is called or ctx ends.
	Watch(ctx context.Context, fn func(StorageEvent)) (stop func(), err error)
}

// SharedStorage is a Storage that can also be watched.
type SharedStorage interface {
	Storage
	StorageWatcher
}
