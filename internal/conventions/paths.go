package conventions

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultDataDir is the default smokerig data directory name (relative to home).
	DefaultDataDir = ".smokerig"
	// DBFile is the run journal SQLite database filename.
	DBFile = "smokerig.db"
	// DefaultLogDir is the default directory for service log files, relative
	// to the working directory so the logs of a run stay next to it.
	DefaultLogDir = "logs"
	// DefaultManifestFile is the services manifest filename looked up in the
	// working directory when no --manifest flag is given.
	DefaultManifestFile = "smokerig.yaml"

	// LogFileExt is the extension of service log files.
	LogFileExt = ".log"
)

// DBPath returns the run journal database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ServiceLogPath returns the log file path for a service instance.
func ServiceLogPath(logDir, instance string) string {
	return filepath.Join(logDir, instance+LogFileExt)
}

// InstanceName returns the name of the nth instance of a service.
// Single-instance services keep the plain service name.
func InstanceName(service string, replica, replicas int) string {
	if replicas <= 1 {
		return service
	}
	return fmt.Sprintf("%s-%d", service, replica)
}

// ContainerName returns the host-unique container name for a service instance.
func ContainerName(instance, runID string) string {
	return fmt.Sprintf("smokerig-%s-%s", instance, strings.ToLower(runID))
}
