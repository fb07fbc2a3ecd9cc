// Package spawner provides interfaces and implementations for launching
// scraper workers as child processes of the server.
//
// Supported spawners:
//   - Exec: re-invokes the server binary in worker mode
//   - Noop: returns an immediately completed handle, for tests
package spawner

import (
	"context"
)

// SpawnRequest contains the information needed to launch a worker
type SpawnRequest struct {
	// JobID is the database ID of the job to process
	JobID int64

	// CountyCode is the county the worker should scrape
	CountyCode string

	// DSN is the database connection string the worker should use
	DSN string

	// ExtraArgs are additional arguments to pass to the worker
	ExtraArgs []string
}

// Handle represents a live spawned worker
type Handle interface {
	// Wait blocks until the worker exits, returning its exit error if any
	Wait() error

	// Terminate asks the worker to stop. Wait still observes the exit.
	Terminate() error

	// PID returns the worker process ID, or 0 when not applicable
	PID() int
}

// Spawner is the interface for launching workers on-demand
type Spawner interface {
	// Spawn starts a new worker to process a job
	Spawn(ctx context.Context, req *SpawnRequest) (Handle, error)

	// Name returns the spawner type name
	Name() string
}
