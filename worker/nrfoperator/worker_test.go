// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfoperator_test

import (
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/canonical/sdcore-nrf-operator/core/status"
	"github.com/canonical/sdcore-nrf-operator/worker/nrfoperator"
)

const (
	longWait  = 10 * time.Second
	shortWait = 50 * time.Millisecond
)

type WorkerSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&WorkerSuite{})

func (s *WorkerSuite) TestValidateConfig(c *gc.C) {
	f := newFixture()
	tests := []struct {
		breakConfig func(*nrfoperator.Config)
		expect      string
	}{{
		func(cfg *nrfoperator.Config) { cfg.Container = nil },
		"nil Container not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Database = nil },
		"nil Database not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Provider = nil },
		"nil Provider not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Leadership = nil },
		"nil Leadership not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Addresses = nil },
		"nil Addresses not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.CertificateRequester = nil },
		"nil CertificateRequester not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.StatusSetter = nil },
		"nil StatusSetter not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Clock = nil },
		"nil Clock not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.Events = nil },
		"nil Events channel not valid",
	}, {
		func(cfg *nrfoperator.Config) { cfg.RetryDelay = 0 },
		"non-positive RetryDelay not valid",
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.expect)
		config := f.config()
		test.breakConfig(&config)
		w, err := nrfoperator.New(config)
		c.Check(w, gc.IsNil)
		c.Check(err, gc.ErrorMatches, test.expect)
	}
}

func (s *WorkerSuite) TestStartStop(c *gc.C) {
	f := newFixture()
	w, err := nrfoperator.New(f.config())
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, w)
}

func (s *WorkerSuite) TestEventDrivesStatus(c *gc.C) {
	f := newFixture()
	f.databaseAvailable()
	f.attachStorage()
	w, err := nrfoperator.New(f.config())
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	f.send(c, nrfoperator.Event{Kind: nrfoperator.WorkloadReady})
	info := f.waitStatus(c)
	c.Check(info.Status, gc.Equals, status.Active)
}

func (s *WorkerSuite) TestDeferredEventRedelivered(c *gc.C) {
	f := newFixture()
	f.container.Reachable = false
	w, err := nrfoperator.New(f.config())
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	f.send(c, nrfoperator.Event{Kind: nrfoperator.WorkloadReady})
	info := f.waitStatus(c)
	c.Check(info.Status, gc.Equals, status.Waiting)
	c.Check(info.Message, gc.Equals, "Waiting for container to be ready")

	// The workload comes up while the event sits in the retry
	// queue; the redelivery must see the new state.
	f.container.SetReachable(true)
	f.databaseAvailable()
	f.attachStorage()
	err = f.clock.WaitAdvance(time.Minute, longWait, 1)
	c.Assert(err, jc.ErrorIsNil)

	info = f.waitStatus(c)
	c.Check(info.Status, gc.Equals, status.Active)
}

func (s *WorkerSuite) TestRedeliveryDefersAgain(c *gc.C) {
	f := newFixture()
	f.container.Reachable = false
	w, err := nrfoperator.New(f.config())
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	f.send(c, nrfoperator.Event{Kind: nrfoperator.WorkloadReady})
	f.waitStatus(c)

	// Still unreachable: the event defers again and a fresh timer
	// is armed each round.
	for i := 0; i < 2; i++ {
		err = f.clock.WaitAdvance(time.Minute, longWait, 1)
		c.Assert(err, jc.ErrorIsNil)
		info := f.waitStatus(c)
		c.Check(info.Message, gc.Equals, "Waiting for container to be ready")
	}
}

func (s *WorkerSuite) TestInvalidEventDropped(c *gc.C) {
	f := newFixture()
	f.databaseAvailable()
	f.attachStorage()
	w, err := nrfoperator.New(f.config())
	c.Assert(err, jc.ErrorIsNil)
	defer workertest.CleanKill(c, w)

	f.send(c, nrfoperator.Event{Kind: "not-a-kind"})
	f.send(c, nrfoperator.Event{Kind: nrfoperator.WorkloadReady})

	// Only the valid event produces a status; the worker survives
	// the malformed one.
	info := f.waitStatus(c)
	c.Check(info.Status, gc.Equals, status.Active)
	select {
	case info := <-f.statuses.notify:
		c.Fatalf("unexpected status %v", info)
	case <-time.After(shortWait):
	}
}

func (f *fixture) send(c *gc.C, event nrfoperator.Event) {
	select {
	case f.events <- event:
	case <-time.After(longWait):
		c.Fatalf("timed out sending %q event", event.Kind)
	}
}

func (f *fixture) waitStatus(c *gc.C) status.StatusInfo {
	select {
	case info := <-f.statuses.notify:
		return info
	case <-time.After(longWait):
		c.Fatalf("timed out waiting for status update")
		panic("unreachable")
	}
}
