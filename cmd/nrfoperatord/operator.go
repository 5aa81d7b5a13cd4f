// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v4"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"
	"github.com/juju/retry"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v2"

	"github.com/canonical/sdcore-nrf-operator/core/leadership"
	"github.com/canonical/sdcore-nrf-operator/core/relation/statedir"
	"github.com/canonical/sdcore-nrf-operator/core/status"
	"github.com/canonical/sdcore-nrf-operator/internal/workload"
	"github.com/canonical/sdcore-nrf-operator/relations/database"
	"github.com/canonical/sdcore-nrf-operator/relations/fivegnrf"
	"github.com/canonical/sdcore-nrf-operator/worker/eventsocket"
	"github.com/canonical/sdcore-nrf-operator/worker/nrfoperator"
)

const databaseName = "free5gc"

type operatorCommand struct {
	cmd.CommandBase

	unitName      string
	dataDir       string
	pebbleSocket  string
	eventSocket   string
	loggingConfig string
	retryDelay    time.Duration
}

func newOperatorCommand() cmd.Command {
	return &operatorCommand{}
}

// Info is part of the cmd.Command interface.
func (c *operatorCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "nrfoperatord",
		Purpose: "operate a 5G NRF workload container",
		Doc: `
nrfoperatord connects to the NRF container's Pebble daemon, renders
the NRF configuration from the database relation, keeps the nrf
service running, and publishes the NRF URL on the fiveg-nrf endpoint.
Lifecycle events are accepted as JSON lines on the event socket.
`,
	}
}

// SetFlags is part of the cmd.Command interface.
func (c *operatorCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.unitName, "unit-name", "", "name of the unit this operator runs for")
	f.StringVar(&c.dataDir, "data-dir", "/var/lib/nrfoperator", "directory for relation and status state")
	f.StringVar(&c.pebbleSocket, "pebble-socket", "/charm/containers/nrf/pebble.socket", "path of the workload Pebble socket")
	f.StringVar(&c.eventSocket, "event-socket", "", "path of the lifecycle event socket (default <data-dir>/events.socket)")
	f.StringVar(&c.loggingConfig, "logging-config", "<root>=INFO", "loggo configuration")
	f.DurationVar(&c.retryDelay, "retry-delay", time.Minute, "delay before a deferred event is redelivered")
}

// Init is part of the cmd.Command interface.
func (c *operatorCommand) Init(args []string) error {
	if err := cmd.CheckEmpty(args); err != nil {
		return errors.Trace(err)
	}
	if c.unitName == "" {
		return errors.NotValidf("missing --unit-name")
	}
	if !names.IsValidUnit(c.unitName) {
		return errors.NotValidf("unit name %q", c.unitName)
	}
	if c.eventSocket == "" {
		c.eventSocket = filepath.Join(c.dataDir, "events.socket")
	}
	return nil
}

// Run is part of the cmd.Command interface.
func (c *operatorCommand) Run(ctx *cmd.Context) error {
	if err := loggo.ConfigureLoggers(c.loggingConfig); err != nil {
		return errors.Trace(err)
	}
	tag := names.NewUnitTag(c.unitName)
	logger.Infof("starting NRF operator for %q", tag)

	container, err := workload.NewPebbleContainer(c.pebbleSocket)
	if err != nil {
		return errors.Trace(err)
	}
	if err := waitForPebble(container); err != nil {
		return errors.Trace(err)
	}

	backend, err := statedir.NewStateDir(filepath.Join(c.dataDir, "relations"))
	if err != nil {
		return errors.Trace(err)
	}
	events, err := eventsocket.New(eventsocket.Config{
		SocketPath: c.eventSocket,
	})
	if err != nil {
		return errors.Trace(err)
	}

	operator, err := nrfoperator.New(nrfoperator.Config{
		Container:            container,
		Database:             database.NewRequirer(backend, database.RelationName, databaseName),
		Provider:             fivegnrf.NewProvider(backend, fivegnrf.RelationName),
		Leadership:           leadership.FileToken(filepath.Join(c.dataDir, "leader")),
		Addresses:            envAddresses{},
		CertificateRequester: &csrWriter{path: filepath.Join(c.dataDir, "requested.csr")},
		StatusSetter:         &statusFile{path: filepath.Join(c.dataDir, "status.yaml")},
		Clock:                clock.WallClock,
		Events:               events.Events(),
		RetryDelay:           c.retryDelay,
	})
	if err != nil {
		events.Kill()
		_ = events.Wait()
		return errors.Trace(err)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Infof("caught %v, shutting down", sig)

	operator.Kill()
	events.Kill()
	operatorErr := operator.Wait()
	if err := events.Wait(); err != nil && operatorErr == nil {
		operatorErr = err
	}
	return errors.Trace(operatorErr)
}

// waitForPebble blocks until the workload's Pebble daemon answers,
// so the operator never starts ahead of its container.
func waitForPebble(container workload.Container) error {
	return retry.Call(retry.CallArgs{
		Func: func() error {
			if !container.Connected() {
				return errors.New("pebble not yet reachable")
			}
			return nil
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("waiting for pebble (attempt %d): %v", attempt, err)
		},
		Attempts: 60,
		Delay:    time.Second,
		Clock:    clock.WallClock,
	})
}

// envAddresses resolves the pod IP from the environment, which the
// pod spec wires up via the downward API.
type envAddresses struct{}

// PrivateAddress is part of nrfoperator.AddressGetter.
func (envAddresses) PrivateAddress() (string, error) {
	return os.Getenv("POD_IP"), nil
}

// csrWriter hands certificate signing requests to the certificate
// collaborator through the data directory.
type csrWriter struct {
	path string
}

// RequestCertificate is part of nrfoperator.CertificateRequester.
func (w *csrWriter) RequestCertificate(csr string) error {
	return errors.Trace(utils.AtomicWriteFile(w.path, []byte(csr), 0600))
}

// statusFile reports the operator's unit status by rewriting a YAML
// document the surrounding runtime watches.
type statusFile struct {
	path string
}

// SetStatus is part of status.StatusSetter.
func (f *statusFile) SetStatus(info status.StatusInfo) error {
	data, err := yaml.Marshal(struct {
		Status  string `yaml:"status"`
		Message string `yaml:"message,omitempty"`
	}{string(info.Status), info.Message})
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(utils.AtomicWriteFile(f.path, data, 0644))
}
