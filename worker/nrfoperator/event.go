// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfoperator

import (
	"github.com/juju/errors"
)

// Kind enumerates the lifecycle events the operator reacts to. All
// reconfiguration events funnel into the same reconciliation entry
// point; the kind only matters for the handful of events carrying a
// payload of their own.
type Kind string

const (
	// WorkloadReady fires when the workload container's control
	// plane first becomes reachable.
	WorkloadReady Kind = "workload-ready"

	// DatabaseRelationJoined fires when the database relation is
	// established.
	DatabaseRelationJoined Kind = "database-relation-joined"

	// DatabaseCreated fires when the database provider signals
	// that the requested database exists.
	DatabaseCreated Kind = "database-created"

	// DatabaseChanged fires when the database provider's
	// application data changes.
	DatabaseChanged Kind = "database-changed"

	// NRFRelationJoined fires when a requirer joins the fiveg-nrf
	// endpoint. It carries the relation ID.
	NRFRelationJoined Kind = "nrf-relation-joined"

	// StorageAttached fires when the config volume is mounted.
	StorageAttached Kind = "storage-attached"

	// CertificatesRelationCreated, CertificatesRelationJoined and
	// CertificatesRelationBroken track the lifecycle of the
	// certificates relation.
	CertificatesRelationCreated Kind = "certificates-relation-created"
	CertificatesRelationJoined  Kind = "certificates-relation-joined"
	CertificatesRelationBroken  Kind = "certificates-relation-broken"

	// CertificateAvailable fires when the external certificate
	// collaborator has issued a certificate. It carries the
	// certificate and the CSR it answers.
	CertificateAvailable Kind = "certificate-available"

	// CertificateExpiring fires when a previously issued
	// certificate approaches expiry. It carries the certificate.
	CertificateExpiring Kind = "certificate-expiring"
)

// Event is one lifecycle notification delivered to the operator.
type Event struct {
	Kind Kind

	// RelationID is set for relation-scoped events.
	RelationID int

	// Certificate and CSR are set for certificate events.
	Certificate string
	CSR         string
}

// Validate returns an error if the event is malformed.
func (e Event) Validate() error {
	switch e.Kind {
	case WorkloadReady, DatabaseRelationJoined, DatabaseCreated, DatabaseChanged,
		StorageAttached, CertificatesRelationCreated, CertificatesRelationJoined,
		CertificatesRelationBroken:
		return nil
	case NRFRelationJoined:
		if e.RelationID < 0 {
			return errors.NotValidf("relation ID %d", e.RelationID)
		}
		return nil
	case CertificateAvailable:
		if e.Certificate == "" || e.CSR == "" {
			return errors.NotValidf("certificate event without material")
		}
		return nil
	case CertificateExpiring:
		if e.Certificate == "" {
			return errors.NotValidf("certificate event without material")
		}
		return nil
	}
	return errors.NotValidf("event kind %q", e.Kind)
}
