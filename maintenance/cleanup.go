// Package maintenance runs periodic housekeeping on the governor's storage.
package maintenance

import (
	"context"
	"sync/atomic"
	"time"
)

// Default cleanup configuration values
const (
	DefaultCleanupInterval   = 1 * time.Hour
	DefaultConflictRetention = 30 * 24 * time.Hour
)

// ConflictStore is the storage the cleanup service prunes. storage.Store
// satisfies it.
type ConflictStore interface {
	DeleteRuntimeConflictsBefore(ctx context.Context, horizon time.Time) (int, error)
}

// CleanupConfig holds configuration for the cleanup service.
type CleanupConfig struct {
	// Interval is how often to run cleanup operations.
	// Default: 1 hour
	Interval time.Duration

	// ConflictRetention is how long runtime conflict records are kept.
	// Default: 30 days
	ConflictRetention time.Duration

	// OnConflictsDeleted is called when runtime conflicts are removed.
	// The count is the number of records deleted.
	OnConflictsDeleted func(count int)

	// OnError is called when a cleanup operation fails.
	OnError func(err error)
}

// DefaultCleanupConfig returns the default cleanup configuration.
func DefaultCleanupConfig() *CleanupConfig {
	return &CleanupConfig{
		Interval:          DefaultCleanupInterval,
		ConflictRetention: DefaultConflictRetention,
	}
}

// CleanupResult holds the results of a cleanup operation.
type CleanupResult struct {
	// Horizon is the cutoff used: records created before it were deleted.
	Horizon time.Time

	// ConflictsDeleted is the number of runtime conflicts removed.
	ConflictsDeleted int

	// Errors contains any errors that occurred during cleanup.
	Errors []error
}

// Cleanup deletes runtime conflict records older than the retention window.
type Cleanup struct {
	store  ConflictStore
	config *CleanupConfig
	now    func() time.Time

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewCleanup creates a new cleanup service. Zero config values take their
// defaults.
func NewCleanup(store ConflictStore, config *CleanupConfig) *Cleanup {
	if config == nil {
		config = DefaultCleanupConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}
	if config.ConflictRetention <= 0 {
		config.ConflictRetention = DefaultConflictRetention
	}

	return &Cleanup{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Start begins the cleanup loop.
// It returns immediately and runs cleanup operations in a goroutine.
func (c *Cleanup) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	c.done = make(chan struct{})
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)

	return nil
}

// Stop stops the cleanup loop and waits for a running pass to finish.
func (c *Cleanup) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrNotStarted
	}

	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.started.Store(false)
	return nil
}

// run is the main cleanup loop.
func (c *Cleanup) run(ctx context.Context) {
	defer close(c.done)

	// Run cleanup immediately on start
	c.runCleanup(ctx)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runCleanup(ctx)
		}
	}
}

// runCleanup performs all cleanup operations and reports through the callbacks.
func (c *Cleanup) runCleanup(ctx context.Context) {
	result := c.RunOnce(ctx)

	if c.config.OnConflictsDeleted != nil && result.ConflictsDeleted > 0 {
		c.config.OnConflictsDeleted(result.ConflictsDeleted)
	}

	if c.config.OnError != nil {
		for _, err := range result.Errors {
			c.config.OnError(err)
		}
	}
}

// RunOnce performs cleanup operations once and returns the result.
// This can be called manually for testing or one-off cleanup.
func (c *Cleanup) RunOnce(ctx context.Context) *CleanupResult {
	result := &CleanupResult{Horizon: c.now().Add(-c.config.ConflictRetention)}

	count, err := c.store.DeleteRuntimeConflictsBefore(ctx, result.Horizon)
	if err != nil {
		result.Errors = append(result.Errors, err)
	} else {
		result.ConflictsDeleted = count
	}

	return result
}

// IsRunning returns true if the cleanup service is running.
func (c *Cleanup) IsRunning() bool {
	return c.started.Load()
}
