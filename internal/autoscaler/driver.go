package autoscaler

import "context"

// FleetDriver provisions and terminates workers. The concrete driver
// belongs to the deployment (a container orchestrator, an instance
// fleet); the controller only needs these three calls.
type FleetDriver interface {
	// CurrentSize returns the number of workers currently provisioned.
	CurrentSize(ctx context.Context) (int, error)

	// Launch provisions n additional workers.
	Launch(ctx context.Context, n int) error

	// Terminate shuts down the named workers. The controller only ever
	// passes ids that self-reported idle.
	Terminate(ctx context.Context, ids []string) error
}
