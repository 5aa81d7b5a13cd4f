// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package database implements the requirer side of the database
// relation: requesting a named database from the provider and
// reading back the connection details it publishes.
package database

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/sdcore-nrf-operator/core/leadership"
	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

var logger = loggo.GetLogger("nrfoperator.relations.database")

// RelationName is the conventional endpoint name for this interface.
const RelationName = "database"

// Info holds the connection details published by the database
// provider.
type Info struct {
	Username string
	Password string
	URIs     []string
}

// URL returns the active connection endpoint: the first entry of the
// URI list.
func (i Info) URL() string {
	if len(i.URIs) == 0 {
		return ""
	}
	return i.URIs[0]
}

// Requirer consumes a database relation.
type Requirer struct {
	backend      relation.Backend
	endpoint     string
	databaseName string
}

// NewRequirer returns a Requirer for the named endpoint requesting
// the given database.
func NewRequirer(backend relation.Backend, endpoint, databaseName string) *Requirer {
	return &Requirer{
		backend:      backend,
		endpoint:     endpoint,
		databaseName: databaseName,
	}
}

// DatabaseName returns the name of the requested database.
func (r *Requirer) DatabaseName() string {
	return r.databaseName
}

// RelationCreated reports whether a database relation exists at all.
// Its absence is an operator-caused condition requiring human action.
func (r *Requirer) RelationCreated() (bool, error) {
	relations, err := r.backend.Relations(r.endpoint)
	if err != nil {
		return false, errors.Trace(err)
	}
	return len(relations) > 0, nil
}

// RequestDatabase writes the requested database name into the local
// application data bag of every database relation, signalling the
// provider to create it. Only the leader may do this.
func (r *Requirer) RequestDatabase(token leadership.Token) error {
	if err := token.Check(); err != nil {
		return errors.Annotate(err, "cannot request database")
	}
	relations, err := r.backend.Relations(r.endpoint)
	if err != nil {
		return errors.Trace(err)
	}
	for _, rel := range relations {
		err := r.backend.UpdateApplicationSettings(rel.ID, relation.Settings{
			"database": r.databaseName,
		})
		if err != nil {
			return errors.Annotatef(err, "requesting database on relation %d", rel.ID)
		}
	}
	return nil
}

// ResourceCreated reports whether the provider has created the
// database: by convention it publishes credentials only once the
// resource exists.
func (r *Requirer) ResourceCreated() (bool, error) {
	settings, err := r.remoteSettings()
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return false, nil
		}
		return false, errors.Trace(err)
	}
	return settings["username"] != "" && settings["password"] != "", nil
}

// Info returns the published connection details. Calling Info before
// ResourceCreated reports true is a programming error; the explicit
// availability check exists precisely so that this never happens.
func (r *Requirer) Info() (Info, error) {
	settings, err := r.remoteSettings()
	if err != nil {
		return Info{}, errors.Trace(err)
	}
	if settings["username"] == "" || settings["password"] == "" {
		return Info{}, errors.Errorf("database %q is not available", r.databaseName)
	}
	info := Info{
		Username: settings["username"],
		Password: settings["password"],
	}
	if uris := settings["uris"]; uris != "" {
		info.URIs = strings.Split(uris, ",")
	}
	return info, nil
}

func (r *Requirer) remoteSettings() (relation.Settings, error) {
	relations, err := r.backend.Relations(r.endpoint)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(relations) == 0 {
		return nil, errors.NotFoundf("%q relation", r.endpoint)
	}
	settings, err := r.backend.RemoteApplicationSettings(relations[0].ID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Tracef("remote settings on %q: %v", r.endpoint, settings)
	return settings, nil
}
