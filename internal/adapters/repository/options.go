// Package repository defines the temporal feature store interface and errors.
package repository

// Option applies a configuration option to the RingStore.
type Option func(*RingStore)

// WithCapacity sets the retention cap of the store.
func WithCapacity(capacity int) Option {
	return func(s *RingStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
