// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package fivegnrf implements both sides of the fiveg-nrf relation
// interface: a single URL, published by the NRF operator's leader
// unit into each relation's application data bag and consumed by any
// number of requirer applications.
package fivegnrf

import (
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/canonical/sdcore-nrf-operator/core/leadership"
	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

var logger = loggo.GetLogger("nrfoperator.relations.fivegnrf")

// RelationName is the conventional endpoint name for this interface.
const RelationName = "fiveg-nrf"

// Provider publishes the NRF URL to requirer applications.
type Provider struct {
	backend  relation.Backend
	endpoint string
}

// NewProvider returns a Provider publishing on the given endpoint.
func NewProvider(backend relation.Backend, endpoint string) *Provider {
	return &Provider{backend: backend, endpoint: endpoint}
}

// Publish writes the URL into the local application data bag of the
// given relation. The caller must hold leadership and is expected to
// have checked it; an invalid token is reported as an error rather
// than silently dropped, since calling Publish without leadership is
// a programming error. An invalid URL writes nothing.
func (p *Provider) Publish(token leadership.Token, nrfURL string, relationID int) error {
	if err := token.Check(); err != nil {
		return errors.Annotate(err, "cannot publish NRF URL")
	}
	settings := relation.Settings{urlKey: nrfURL}
	if err := validateSettings(settings); err != nil {
		return errors.Annotatef(err, "refusing to publish %q", nrfURL)
	}
	if err := p.backend.UpdateApplicationSettings(relationID, settings); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("published NRF URL %q on relation %d", nrfURL, relationID)
	return nil
}

// PublishAll writes the URL into every established relation on the
// provider's endpoint. Publication is a best-effort broadcast: an
// endpoint with no relations is a no-op, not an error.
func (p *Provider) PublishAll(token leadership.Token, nrfURL string) error {
	if err := token.Check(); err != nil {
		return errors.Annotate(err, "cannot publish NRF URL")
	}
	settings := relation.Settings{urlKey: nrfURL}
	if err := validateSettings(settings); err != nil {
		return errors.Annotatef(err, "refusing to publish %q", nrfURL)
	}
	relations, err := p.backend.Relations(p.endpoint)
	if err != nil {
		return errors.Trace(err)
	}
	if len(relations) == 0 {
		logger.Debugf("no relations on %q, nothing to publish", p.endpoint)
		return nil
	}
	remotes := set.NewStrings()
	for _, rel := range relations {
		if err := p.backend.UpdateApplicationSettings(rel.ID, settings); err != nil {
			return errors.Annotatef(err, "publishing to relation %d", rel.ID)
		}
		remotes.Add(rel.RemoteApplication)
	}
	logger.Debugf("published NRF URL %q to %s", nrfURL, strings.Join(remotes.SortedValues(), ", "))
	return nil
}
