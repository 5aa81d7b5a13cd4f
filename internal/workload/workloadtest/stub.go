// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package workloadtest provides an in-memory workload container for
// use in tests.
package workloadtest

import (
	"sync"

	"github.com/juju/errors"

	"github.com/canonical/sdcore-nrf-operator/internal/workload"
)

func errNotFound(path string) error {
	return errors.NotFoundf("file %q", path)
}

// Container is an in-memory implementation of workload.Container. A
// zero value is unusable; use NewContainer.
type Container struct {
	mu sync.Mutex

	// Reachable controls the Connected result.
	Reachable bool

	files    map[string]string
	dirs     map[string]bool
	plan     workload.Plan
	running  map[string]bool
	restarts []string
	pushes   int
}

// NewContainer returns an empty, reachable container.
func NewContainer() *Container {
	return &Container{
		Reachable: true,
		files:     make(map[string]string),
		dirs:      make(map[string]bool),
		running:   make(map[string]bool),
		plan:      workload.Plan{Services: make(map[string]workload.Service)},
	}
}

// AddDir marks a directory as present, e.g. to simulate attached
// storage.
func (c *Container) AddDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs[path] = true
}

// SetReachable flips connectivity, safe against a concurrent reader.
func (c *Container) SetReachable(reachable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reachable = reachable
}

// File returns the content of a pushed file and whether it exists.
func (c *Container) File(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.files[path]
	return content, ok
}

// SetFile seeds file content without going through Push.
func (c *Container) SetFile(path, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = content
}

// PushCount returns how many Push calls were made.
func (c *Container) PushCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushes
}

// Restarts returns the sequence of restarted service names.
func (c *Container) Restarts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.restarts...)
}

// CurrentPlan returns a copy of the applied plan.
func (c *Container) CurrentPlan() workload.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	services := make(map[string]workload.Service, len(c.plan.Services))
	for name, svc := range c.plan.Services {
		services[name] = svc
	}
	return workload.Plan{Services: services}
}

// Connected is part of workload.Container.
func (c *Container) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Reachable
}

// Exists is part of workload.Container.
func (c *Container) Exists(path string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirs[path] {
		return true, nil
	}
	_, ok := c.files[path]
	return ok, nil
}

// Pull is part of workload.Container.
func (c *Container) Pull(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.files[path]
	if !ok {
		return "", errNotFound(path)
	}
	return content, nil
}

// Push is part of workload.Container.
func (c *Container) Push(path, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = content
	c.pushes++
	return nil
}

// RemovePath is part of workload.Container.
func (c *Container) RemovePath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
	return nil
}

// Plan is part of workload.Container.
func (c *Container) Plan() (workload.Plan, error) {
	return c.CurrentPlan(), nil
}

// AddLayer is part of workload.Container.
func (c *Container) AddLayer(label string, layer workload.Layer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, svc := range layer.Services {
		c.plan.Services[name] = svc
	}
	return nil
}

// Restart is part of workload.Container.
func (c *Container) Restart(services ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range services {
		c.running[name] = true
		c.restarts = append(c.restarts, name)
	}
	return nil
}

// ServiceRunning is part of workload.Container.
func (c *Container) ServiceRunning(name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running[name], nil
}
