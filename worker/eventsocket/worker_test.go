// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package eventsocket_test

import (
	"bufio"
	"fmt"
	"net"
	"path/filepath"
	stdtesting "testing"
	"time"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/juju/worker/v4/workertest"
	gc "gopkg.in/check.v1"

	"github.com/canonical/sdcore-nrf-operator/worker/eventsocket"
	"github.com/canonical/sdcore-nrf-operator/worker/nrfoperator"
)

func Test(t *stdtesting.T) {
	gc.TestingT(t)
}

const longWait = 10 * time.Second

type EventSocketSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&EventSocketSuite{})

func (s *EventSocketSuite) TestValidateConfig(c *gc.C) {
	w, err := eventsocket.New(eventsocket.Config{})
	c.Check(w, gc.IsNil)
	c.Check(err, gc.ErrorMatches, "empty SocketPath not valid")
}

func (s *EventSocketSuite) start(c *gc.C) (*eventsocket.Worker, string) {
	path := filepath.Join(c.MkDir(), "events.socket")
	w, err := eventsocket.New(eventsocket.Config{SocketPath: path})
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(c *gc.C) { workertest.CleanKill(c, w) })
	return w, path
}

func (s *EventSocketSuite) dial(c *gc.C, path string) net.Conn {
	conn, err := net.Dial("unix", path)
	c.Assert(err, jc.ErrorIsNil)
	s.AddCleanup(func(c *gc.C) { _ = conn.Close() })
	return conn
}

func (s *EventSocketSuite) waitEvent(c *gc.C, w *eventsocket.Worker) nrfoperator.Event {
	select {
	case event := <-w.Events():
		return event
	case <-time.After(longWait):
		c.Fatalf("timed out waiting for event")
		panic("unreachable")
	}
}

func (s *EventSocketSuite) TestDeliversEvent(c *gc.C) {
	w, path := s.start(c)
	conn := s.dial(c, path)

	fmt.Fprintln(conn, `{"kind": "workload-ready"}`)
	event := s.waitEvent(c, w)
	c.Check(event.Kind, gc.Equals, nrfoperator.WorkloadReady)

	reply, err := bufio.NewReader(conn).ReadString('\n')
	c.Assert(err, jc.ErrorIsNil)
	c.Check(reply, gc.Equals, "ok\n")
}

func (s *EventSocketSuite) TestDeliversPayload(c *gc.C) {
	w, path := s.start(c)
	conn := s.dial(c, path)

	fmt.Fprintln(conn, `{"kind": "nrf-relation-joined", "relation-id": 3}`)
	event := s.waitEvent(c, w)
	c.Check(event, jc.DeepEquals, nrfoperator.Event{
		Kind:       nrfoperator.NRFRelationJoined,
		RelationID: 3,
	})
}

func (s *EventSocketSuite) TestRejectsMalformedJSON(c *gc.C) {
	w, path := s.start(c)
	conn := s.dial(c, path)
	reader := bufio.NewReader(conn)

	fmt.Fprintln(conn, `{"kind": `)
	reply, err := reader.ReadString('\n')
	c.Assert(err, jc.ErrorIsNil)
	c.Check(reply, gc.Matches, "error: cannot decode event.*\n")

	// The connection stays usable.
	fmt.Fprintln(conn, `{"kind": "storage-attached"}`)
	event := s.waitEvent(c, w)
	c.Check(event.Kind, gc.Equals, nrfoperator.StorageAttached)
}

func (s *EventSocketSuite) TestRejectsUnknownKind(c *gc.C) {
	_, path := s.start(c)
	conn := s.dial(c, path)

	fmt.Fprintln(conn, `{"kind": "not-a-kind"}`)
	reply, err := bufio.NewReader(conn).ReadString('\n')
	c.Assert(err, jc.ErrorIsNil)
	c.Check(reply, gc.Matches, `error: event kind "not-a-kind" not valid\n`)
}

func (s *EventSocketSuite) TestMultipleConnections(c *gc.C) {
	w, path := s.start(c)
	first := s.dial(c, path)
	second := s.dial(c, path)

	fmt.Fprintln(first, `{"kind": "database-created"}`)
	c.Check(s.waitEvent(c, w).Kind, gc.Equals, nrfoperator.DatabaseCreated)
	fmt.Fprintln(second, `{"kind": "database-changed"}`)
	c.Check(s.waitEvent(c, w).Kind, gc.Equals, nrfoperator.DatabaseChanged)
}

func (s *EventSocketSuite) TestKillClosesConnections(c *gc.C) {
	path := filepath.Join(c.MkDir(), "events.socket")
	w, err := eventsocket.New(eventsocket.Config{SocketPath: path})
	c.Assert(err, jc.ErrorIsNil)

	conn, err := net.Dial("unix", path)
	c.Assert(err, jc.ErrorIsNil)
	defer func() { _ = conn.Close() }()

	// Make sure the worker has accepted before killing it.
	fmt.Fprintln(conn, `{"kind": "workload-ready"}`)
	reader := bufio.NewReader(conn)
	select {
	case <-w.Events():
	case <-time.After(longWait):
		c.Fatalf("timed out waiting for event")
	}
	reply, err := reader.ReadString('\n')
	c.Assert(err, jc.ErrorIsNil)
	c.Check(reply, gc.Equals, "ok\n")

	workertest.CleanKill(c, w)

	// The worker hangs up its end; an idle peer must not be left
	// holding a half-open connection.
	c.Assert(conn.SetReadDeadline(time.Now().Add(longWait)), jc.ErrorIsNil)
	_, err = reader.ReadString('\n')
	c.Check(err, gc.NotNil)
}

func (s *EventSocketSuite) TestCleanShutdown(c *gc.C) {
	path := filepath.Join(c.MkDir(), "events.socket")
	w, err := eventsocket.New(eventsocket.Config{SocketPath: path})
	c.Assert(err, jc.ErrorIsNil)
	workertest.CleanKill(c, w)
}
