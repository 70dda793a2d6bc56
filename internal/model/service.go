package model

import (
	"fmt"
	"time"
)

// ServiceSpec declares one pipeline service the harness is responsible for
// launching and tearing down.
//
// Exactly one of Command (host process) or Image (container) must be set, and
// it selects the runtime the service is launched with.
type ServiceSpec struct {
	// Name identifies the service in logs, journal entries and log file names.
	Name string
	// Command is the argv of a host process (Command[0] is the executable).
	Command []string
	// Image is a container image reference.
	Image string
	// Env is extra environment set on the service.
	Env map[string]string
	// Replicas is how many instances to launch. 0 means 1.
	Replicas int
	// LogPath overrides the default log file path for the service output.
	LogPath string
}

// Instances returns the effective number of instances to launch.
func (s ServiceSpec) Instances() int {
	if s.Replicas < 1 {
		return 1
	}
	return s.Replicas
}

// Validate checks the spec is launchable.
func (s ServiceSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("service name is required: %w", ErrNotValid)
	}

	if len(s.Command) == 0 && s.Image == "" {
		return fmt.Errorf("service %q needs a command or an image: %w", s.Name, ErrNotValid)
	}

	if len(s.Command) > 0 && s.Image != "" {
		return fmt.Errorf("service %q can't have both a command and an image: %w", s.Name, ErrNotValid)
	}

	if s.Replicas < 0 {
		return fmt.Errorf("service %q has negative replicas: %w", s.Name, ErrNotValid)
	}

	return nil
}

// ServiceProcess is the handle of one launched service instance.
type ServiceProcess struct {
	// Name is the instance name: the spec name, suffixed when Replicas > 1.
	Name string
	// Spec is the spec the instance was launched from.
	Spec ServiceSpec
	// PID is the OS process id (host runtime only).
	PID int
	// ContainerID is the container id (docker runtime only).
	ContainerID string
	// LogPath is where the instance's combined stdout/stderr ends up.
	LogPath string
	// StartedAt is when the instance was launched.
	StartedAt time.Time
}

// Manifest is the declared service set of a verification run.
type Manifest struct {
	// APIURL is the translation API base URL. Empty means the caller's default.
	APIURL string
	// Services are launched in order and torn down in reverse order.
	Services []ServiceSpec
}

// Validate checks the manifest as a whole.
func (m Manifest) Validate() error {
	if len(m.Services) == 0 {
		return fmt.Errorf("manifest has no services: %w", ErrNotValid)
	}

	seen := map[string]bool{}
	for _, s := range m.Services {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate service name %q: %w", s.Name, ErrNotValid)
		}
		seen[s.Name] = true
	}

	return nil
}
