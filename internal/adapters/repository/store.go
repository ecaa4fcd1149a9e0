// Package repository defines the temporal feature store interface and errors.
package repository

import (
	"context"

	"github.com/matchpulse/matchpulse/internal/domain/model"
)

// Store provides append and windowed read access to derived features.
//
// Single-writer discipline is assumed for ordering: one ingestion pipeline
// appends, any number of readers snapshot. Reads are non-destructive and
// re-callable.
type Store interface {
	// Store appends one feature. Once the retention cap is reached the
	// oldest entry is evicted first.
	Store(ctx context.Context, f model.TemporalFeature)

	// RecentFeatures returns up to n of the most recent features in
	// insertion order. Calling it twice without new writes returns
	// identical sequences.
	RecentFeatures(ctx context.Context, n int) []model.TemporalFeature

	// Snapshot returns all retained features in insertion order.
	Snapshot(ctx context.Context) []model.TemporalFeature

	// Size returns the current number of retained features.
	Size(ctx context.Context) int

	// Clear resets the store to empty.
	Clear(ctx context.Context)
}
