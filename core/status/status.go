// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"time"
)

// Status represents the operator's view of how close the managed
// workload is to its desired running state. Statuses are derived, not
// stored: every reconciliation pass recomputes the status from the
// observable state of the external collaborators.
type Status string

// String returns a string representation of the Status.
func (s Status) String() string {
	return string(s)
}

const (
	// Blocked means the operator requires human intervention
	// in order to make progress, typically a missing relation.
	Blocked Status = "blocked"

	// Waiting means the operator is waiting on an external
	// precondition that is expected to resolve itself, such as a
	// container becoming reachable or relation data arriving.
	Waiting Status = "waiting"

	// Maintenance means the operator is actively changing the
	// workload, for example pushing configuration or restarting
	// the service.
	Maintenance Status = "maintenance"

	// Active means every precondition is satisfied and the
	// workload is running its desired configuration.
	Active Status = "active"
)

// KnownWorkloadStatus returns true if the status is one the operator
// may report for its workload.
func (s Status) KnownWorkloadStatus() bool {
	switch s {
	case Blocked, Waiting, Maintenance, Active:
		return true
	}
	return false
}

// StatusInfo holds a Status and associated information.
type StatusInfo struct {
	Status  Status
	Message string
	Since   *time.Time
}

// StatusSetter represents a type whose status can be set.
type StatusSetter interface {
	SetStatus(StatusInfo) error
}

// StatusGetter represents a type whose status can be read.
type StatusGetter interface {
	Status() (StatusInfo, error)
}
