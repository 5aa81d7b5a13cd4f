// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package workload gives the operator a narrow view of the workload
// container: its filesystem and its service supervision plan. The
// production implementation talks to the Pebble daemon inside the
// container; tests substitute an in-memory double.
package workload

// Container is the operator's control channel into the workload
// container.
type Container interface {
	// Connected reports whether the container's control plane is
	// reachable. Every other method may fail arbitrarily while
	// Connected returns false.
	Connected() bool

	// Exists reports whether a file or directory exists at the
	// given path inside the container.
	Exists(path string) (bool, error)

	// Pull returns the content of the file at the given path. A
	// missing file yields an error satisfying errors.NotFound.
	Pull(path string) (string, error)

	// Push atomically overwrites the file at the given path with
	// the given content, creating parent directories as needed.
	Push(path, content string) error

	// RemovePath removes the file at the given path. Removing a
	// path that does not exist is not an error.
	RemovePath(path string) error

	// Plan returns the currently applied service plan.
	Plan() (Plan, error)

	// AddLayer adds a labelled layer to the plan, combining with
	// any previous layer of the same label.
	AddLayer(label string, layer Layer) error

	// Restart (re)starts the named services and waits for the
	// change to complete.
	Restart(services ...string) error

	// ServiceRunning reports whether the named service is
	// currently active.
	ServiceRunning(name string) (bool, error)
}
