package runner

import (
	"context"

	"github.com/rustedworkshop/smokerig/internal/model"
)

// Runner is the interface for launching and tearing down service instances.
//
// A Runner owns the runtime handles of everything it starts, keyed by the
// instance name. Callers keep only the returned model.ServiceProcess and hand
// it back for liveness checks and termination.
type Runner interface {
	// Check performs preflight checks for the given service specs and returns
	// the results. Checks verify the runtime can launch the specs at all
	// (binaries resolvable, daemon reachable...), not that the services work.
	Check(ctx context.Context, specs []model.ServiceSpec) []model.CheckResult

	// Start launches a single service instance and returns its handle.
	// The instance's stdout and stderr end up in the instance log file.
	Start(ctx context.Context, spec model.ServiceSpec) (*model.ServiceProcess, error)

	// IsRunning reports whether the instance is still alive. Unknown
	// instances are reported as not running.
	IsRunning(process *model.ServiceProcess) bool

	// Terminate stops the instance, first politely and then by force, and
	// releases its runtime handles (log file included). Terminating an
	// unknown or already terminated instance is not an error.
	Terminate(process *model.ServiceProcess) error
}
