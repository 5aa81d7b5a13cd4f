// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package relation holds the data-exchange model shared by the
// operator and its integration libraries: relation identity and the
// application-scoped key-value bags carried by each relation.
package relation

import (
	"github.com/juju/errors"
)

// Settings is the content of a relation data bag. Values are always
// strings on the wire; anything structured is serialized by the
// layer above.
type Settings map[string]string

// Clone returns an independent copy of the settings.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	clone := make(Settings, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Relation identifies one established relation on a named endpoint.
type Relation struct {
	// ID uniquely identifies the relation within the model.
	ID int

	// Endpoint is the local endpoint (channel) name the relation
	// was established on, for example "fiveg-nrf" or "database".
	Endpoint string

	// RemoteApplication is the name of the application on the
	// other side of the relation.
	RemoteApplication string
}

// Backend gives access to the relations of the local application and
// their data bags. Implementations are expected to be backed by an
// externally persisted store; the operator never caches bag content
// across events.
type Backend interface {
	// Relations returns every established relation on the named
	// endpoint. An endpoint with no relations yields an empty
	// slice, not an error.
	Relations(endpoint string) ([]Relation, error)

	// RemoteApplicationSettings returns the remote application's
	// data bag for the given relation.
	RemoteApplicationSettings(relationID int) (Settings, error)

	// LocalApplicationSettings returns the local application's
	// data bag for the given relation. Mutating the returned map
	// has no effect on the store.
	LocalApplicationSettings(relationID int) (Settings, error)

	// UpdateApplicationSettings merges the given changes into the
	// local application's data bag for the given relation. Only
	// the unit holding leadership may do this; enforcement is the
	// caller's responsibility.
	UpdateApplicationSettings(relationID int, changes Settings) error
}

// NotFoundError describes a relation that is not in the backend.
func NotFoundError(relationID int) error {
	return errors.NotFoundf("relation %d", relationID)
}
