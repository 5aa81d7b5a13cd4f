// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

import (
	"bytes"
	"strings"

	"github.com/canonical/pebble/client"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("nrfoperator.workload")

// PebbleContainer implements Container on top of a Pebble daemon
// reachable over its unix socket.
type PebbleContainer struct {
	pebble *client.Client
}

// NewPebbleContainer returns a Container backed by the Pebble daemon
// listening on the given socket path.
func NewPebbleContainer(socketPath string) (*PebbleContainer, error) {
	pebble, err := client.New(&client.Config{Socket: socketPath})
	if err != nil {
		return nil, errors.Annotate(err, "cannot create pebble client")
	}
	return &PebbleContainer{pebble: pebble}, nil
}

// Connected is part of the Container interface.
func (c *PebbleContainer) Connected() bool {
	if _, err := c.pebble.SysInfo(); err != nil {
		logger.Debugf("pebble not reachable: %v", err)
		return false
	}
	return true
}

// Exists is part of the Container interface.
func (c *PebbleContainer) Exists(path string) (bool, error) {
	_, err := c.pebble.ListFiles(&client.ListFilesOptions{Path: path, Itself: true})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Annotatef(err, "cannot stat %q", path)
	}
	return true, nil
}

// Pull is part of the Container interface.
func (c *PebbleContainer) Pull(path string) (string, error) {
	var buf bytes.Buffer
	err := c.pebble.Pull(&client.PullOptions{Path: path, Target: &buf})
	if err != nil {
		return "", pullError(path, err)
	}
	return buf.String(), nil
}

// Push is part of the Container interface.
func (c *PebbleContainer) Push(path, content string) error {
	err := c.pebble.Push(&client.PushOptions{
		Path:     path,
		Source:   strings.NewReader(content),
		MakeDirs: true,
	})
	return errors.Annotatef(err, "cannot push %q", path)
}

// RemovePath is part of the Container interface.
func (c *PebbleContainer) RemovePath(path string) error {
	err := c.pebble.RemovePath(&client.RemovePathOptions{Path: path})
	if err != nil && !isNotFound(err) {
		return errors.Annotatef(err, "cannot remove %q", path)
	}
	return nil
}

// Plan is part of the Container interface.
func (c *PebbleContainer) Plan() (Plan, error) {
	data, err := c.pebble.PlanBytes(&client.PlanOptions{})
	if err != nil {
		return Plan{}, errors.Annotate(err, "cannot get plan")
	}
	plan, err := ParsePlan(data)
	return plan, errors.Trace(err)
}

// AddLayer is part of the Container interface.
func (c *PebbleContainer) AddLayer(label string, layer Layer) error {
	data, err := layer.MarshalBytes()
	if err != nil {
		return errors.Trace(err)
	}
	err = c.pebble.AddLayer(&client.AddLayerOptions{
		Combine:   true,
		Label:     label,
		LayerData: data,
	})
	return errors.Annotatef(err, "cannot add layer %q", label)
}

// Restart is part of the Container interface.
func (c *PebbleContainer) Restart(services ...string) error {
	changeID, err := c.pebble.Restart(&client.ServiceOptions{Names: services})
	if err != nil {
		return errors.Annotatef(err, "cannot restart %v", services)
	}
	change, err := c.pebble.WaitChange(changeID, &client.WaitChangeOptions{})
	if err != nil {
		return errors.Annotatef(err, "restart of %v did not complete", services)
	}
	if change.Err != "" {
		return errors.Errorf("restart of %v failed: %s", services, change.Err)
	}
	return nil
}

// ServiceRunning is part of the Container interface.
func (c *PebbleContainer) ServiceRunning(name string) (bool, error) {
	infos, err := c.pebble.Services(&client.ServicesOptions{Names: []string{name}})
	if err != nil {
		return false, errors.Annotatef(err, "cannot get service %q", name)
	}
	if len(infos) == 0 {
		return false, nil
	}
	return infos[0].Current == client.StatusActive, nil
}

// pullError maps a missing file onto a NotFound error, which is the
// Container.Pull contract callers dispatch on.
func pullError(path string, err error) error {
	if isNotFound(err) {
		return errors.NotFoundf("file %q", path)
	}
	return errors.Annotatef(err, "cannot pull %q", path)
}

func isNotFound(err error) bool {
	clientErr, ok := errors.Cause(err).(*client.Error)
	return ok && clientErr.StatusCode == 404
}
