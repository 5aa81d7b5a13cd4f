// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package nrfoperator implements the reconciliation controller for
// the 5G NRF workload. The worker consumes lifecycle events, derives
// the full readiness state from scratch on every event, and drives
// the workload towards its desired running configuration: a rendered
// config file, an applied service plan, and the NRF URL published to
// every requirer relation.
package nrfoperator

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/worker/v4/catacomb"

	"github.com/canonical/sdcore-nrf-operator/core/leadership"
	"github.com/canonical/sdcore-nrf-operator/core/status"
	"github.com/canonical/sdcore-nrf-operator/internal/workload"
	"github.com/canonical/sdcore-nrf-operator/relations/database"
	"github.com/canonical/sdcore-nrf-operator/relations/fivegnrf"
)

var logger = loggo.GetLogger("nrfoperator.worker")

// errRetry marks an event whose preconditions are not yet met. The
// event is requeued for redelivery rather than failed: deferral is
// unbounded and relies on later events (or the redelivery itself)
// re-triggering the chain.
var errRetry = errors.New("preconditions not yet met")

// AddressGetter resolves the unit's own network address.
type AddressGetter interface {
	// PrivateAddress returns the pod IP, or empty if it is not yet
	// resolvable.
	PrivateAddress() (string, error)
}

// CertificateRequester hands certificate signing requests to the
// external certificate collaborator. Issuance and renewal are out of
// the operator's hands; it only learns the outcome through
// CertificateAvailable and CertificateExpiring events.
type CertificateRequester interface {
	RequestCertificate(csr string) error
}

// Config defines the operation of the Worker.
type Config struct {
	Container            workload.Container
	Database             *database.Requirer
	Provider             *fivegnrf.Provider
	Leadership           leadership.Token
	Addresses            AddressGetter
	CertificateRequester CertificateRequester
	StatusSetter         status.StatusSetter
	Clock                clock.Clock

	// Events delivers lifecycle notifications. Handlers run one at
	// a time to completion; there is no in-process parallelism.
	Events <-chan Event

	// RetryDelay is how long a deferred event waits before
	// redelivery.
	RetryDelay time.Duration
}

// Validate returns an error if config cannot drive the Worker.
func (config Config) Validate() error {
	if config.Container == nil {
		return errors.NotValidf("nil Container")
	}
	if config.Database == nil {
		return errors.NotValidf("nil Database")
	}
	if config.Provider == nil {
		return errors.NotValidf("nil Provider")
	}
	if config.Leadership == nil {
		return errors.NotValidf("nil Leadership")
	}
	if config.Addresses == nil {
		return errors.NotValidf("nil Addresses")
	}
	if config.CertificateRequester == nil {
		return errors.NotValidf("nil CertificateRequester")
	}
	if config.StatusSetter == nil {
		return errors.NotValidf("nil StatusSetter")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Events == nil {
		return errors.NotValidf("nil Events channel")
	}
	if config.RetryDelay <= 0 {
		return errors.NotValidf("non-positive RetryDelay")
	}
	return nil
}

// Worker is the NRF reconciliation controller.
type Worker struct {
	catacomb catacomb.Catacomb
	config   Config
}

// New returns an NRF operator Worker backed by config, or an error.
func New(config Config) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &Worker{config: config}
	err := catacomb.Invoke(catacomb.Plan{
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

func (w *Worker) loop() error {
	var (
		deferred []Event
		timer    clock.Timer
		timerCh  <-chan time.Time
	)
	for {
		select {
		case <-w.catacomb.Dying():
			if timer != nil {
				timer.Stop()
			}
			return w.catacomb.ErrDying()

		case event := <-w.config.Events:
			if err := w.deliver(event, &deferred); err != nil {
				return errors.Trace(err)
			}

		case <-timerCh:
			timerCh = nil
			timer = nil
			requeued := deferred
			deferred = nil
			for _, event := range requeued {
				if err := w.deliver(event, &deferred); err != nil {
					return errors.Trace(err)
				}
			}
		}
		if len(deferred) > 0 && timer == nil {
			timer = w.config.Clock.NewTimer(w.config.RetryDelay)
			timerCh = timer.Chan()
		}
	}
}

// deliver runs one event to completion, updating the reported status
// and requeueing the event if its preconditions were not met.
func (w *Worker) deliver(event Event, deferred *[]Event) error {
	if err := event.Validate(); err != nil {
		logger.Warningf("dropping event: %v", err)
		return nil
	}
	logger.Debugf("handling %q event", event.Kind)
	info, err := w.handle(event)
	if info != nil {
		if err := w.config.StatusSetter.SetStatus(*info); err != nil {
			return errors.Annotate(err, "cannot set status")
		}
	}
	if errors.Is(err, errRetry) {
		reason := "preconditions not yet met"
		if info != nil {
			reason = info.Message
		}
		logger.Debugf("deferring %q event: %s", event.Kind, reason)
		*deferred = append(*deferred, event)
		return nil
	}
	return errors.Trace(err)
}

// handle dispatches a single event. Every reconfiguration event runs
// the full readiness chain from scratch; only the events carrying
// their own payload take a shorter path.
func (w *Worker) handle(event Event) (*status.StatusInfo, error) {
	switch event.Kind {
	case DatabaseRelationJoined:
		if err := w.handleDatabaseRelationJoined(); err != nil {
			return nil, errors.Trace(err)
		}
		return w.reconcile()
	case NRFRelationJoined:
		return nil, w.handleNRFRelationJoined(event.RelationID)
	case CertificatesRelationCreated:
		return nil, w.handleCertificatesRelationCreated()
	case CertificatesRelationJoined:
		return nil, w.handleCertificatesRelationJoined()
	case CertificatesRelationBroken:
		return nil, w.handleCertificatesRelationBroken()
	case CertificateAvailable:
		return nil, w.handleCertificateAvailable(event.Certificate, event.CSR)
	case CertificateExpiring:
		return nil, w.handleCertificateExpiring(event.Certificate)
	}
	return w.reconcile()
}
