// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package eventsocket accepts lifecycle events over a unix domain
// socket and feeds them to the operator. Each connection carries
// newline-delimited JSON documents; every document is acknowledged
// with "ok" or an error line, so dispatch scripts can fail loudly.
package eventsocket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/sdcore-nrf-operator/worker/nrfoperator"
)

var logger = loggo.GetLogger("nrfoperator.eventsocket")

// Config defines the operation of the event socket worker.
type Config struct {
	// SocketPath is where the listening socket is created. An
	// existing stale socket file is replaced.
	SocketPath string
}

// Validate returns an error if config cannot drive the worker.
func (config Config) Validate() error {
	if config.SocketPath == "" {
		return errors.NotValidf("empty SocketPath")
	}
	return nil
}

// wireEvent is the JSON form of one lifecycle event.
type wireEvent struct {
	Kind        string `json:"kind"`
	RelationID  int    `json:"relation-id,omitempty"`
	Certificate string `json:"certificate,omitempty"`
	CSR         string `json:"csr,omitempty"`
}

// Worker listens on a unix socket and forwards decoded events.
type Worker struct {
	catacomb catacomb.Catacomb
	listener net.Listener
	out      chan nrfoperator.Event

	mu      sync.Mutex
	closing bool
	conns   map[net.Conn]struct{}
}

// New returns an event socket worker listening on the configured
// path, or an error.
func New(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	listener, err := net.Listen("unix", config.SocketPath)
	if err != nil {
		return nil, errors.Annotate(err, "cannot listen on event socket")
	}
	w := &Worker{
		listener: listener,
		out:      make(chan nrfoperator.Event),
		conns:    make(map[net.Conn]struct{}),
	}
	err = catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	})
	return w, errors.Trace(err)
}

// Kill is part of the worker.Worker interface.
func (w *Worker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait is part of the worker.Worker interface.
func (w *Worker) Wait() error {
	return w.catacomb.Wait()
}

// Events returns the channel decoded events are delivered on.
func (w *Worker) Events() <-chan nrfoperator.Event {
	return w.out
}

func (w *Worker) loop() error {
	// Closing the listener unblocks Accept; closing the accepted
	// connections unblocks their readers, so no goroutine outlives
	// the worker.
	go func() {
		<-w.catacomb.Dying()
		_ = w.listener.Close()
		w.closeConns()
	}()
	logger.Infof("listening on %q", w.listener.Addr())
	for {
		conn, err := w.listener.Accept()
		if err != nil {
			select {
			case <-w.catacomb.Dying():
				return w.catacomb.ErrDying()
			default:
				return errors.Trace(err)
			}
		}
		go w.serve(conn)
	}
}

// track registers a live connection, refusing it when the worker is
// already shutting down.
func (w *Worker) track(conn net.Conn) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closing {
		return false
	}
	w.conns[conn] = struct{}{}
	return true
}

func (w *Worker) untrack(conn net.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, conn)
}

func (w *Worker) closeConns() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closing = true
	for conn := range w.conns {
		_ = conn.Close()
	}
}

// serve decodes events from one connection until it closes. Malformed
// documents are reported to the sender and dropped; they never stop
// the worker.
func (w *Worker) serve(conn net.Conn) {
	if !w.track(conn) {
		_ = conn.Close()
		return
	}
	defer func() {
		w.untrack(conn)
		_ = conn.Close()
	}()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := decode(line)
		if err != nil {
			logger.Warningf("dropping event: %v", err)
			fmt.Fprintf(conn, "error: %v\n", err)
			continue
		}
		select {
		case w.out <- event:
			fmt.Fprintln(conn, "ok")
		case <-w.catacomb.Dying():
			return
		}
	}
}

func decode(line []byte) (nrfoperator.Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(line, &wire); err != nil {
		return nrfoperator.Event{}, errors.Annotate(err, "cannot decode event")
	}
	event := nrfoperator.Event{
		Kind:        nrfoperator.Kind(wire.Kind),
		RelationID:  wire.RelationID,
		Certificate: wire.Certificate,
		CSR:         wire.CSR,
	}
	if err := event.Validate(); err != nil {
		return nrfoperator.Event{}, errors.Trace(err)
	}
	return event, nil
}
