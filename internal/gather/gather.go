// Package gather implements the synchronizers that keep the on-disk stores
// current: the short-volume store, the per-symbol price histories, and the
// symbol metadata file.
package gather

import "context"

// Synchronizer is the interface for all store synchronization passes.
type Synchronizer interface {
	// Name returns the synchronizer identifier.
	Name() string
	// Run brings the synchronizer's store up to date. It blocks until done
	// or ctx is cancelled.
	Run(ctx context.Context) error
}
