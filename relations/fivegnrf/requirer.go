// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package fivegnrf

import (
	"github.com/juju/errors"

	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

// RequirerConfig holds the dependencies of a Requirer.
type RequirerConfig struct {
	Backend  relation.Backend
	Endpoint string

	// NRFAvailable receives the NRF URL whenever a valid one
	// appears in a provider's application data bag. The channel is
	// owned by the consuming application's event loop; sends block
	// until it is ready.
	NRFAvailable chan<- string
}

// Validate returns an error if the config cannot drive a Requirer.
func (config RequirerConfig) Validate() error {
	if config.Backend == nil {
		return errors.NotValidf("nil Backend")
	}
	if config.Endpoint == "" {
		return errors.NotValidf("empty Endpoint")
	}
	if config.NRFAvailable == nil {
		return errors.NotValidf("nil NRFAvailable channel")
	}
	return nil
}

// Requirer consumes the NRF URL published by a provider application.
type Requirer struct {
	config RequirerConfig
}

// NewRequirer returns a Requirer backed by config.
func NewRequirer(config RequirerConfig) (*Requirer, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Requirer{config: config}, nil
}

// HandleRelationChanged processes a change to the provider's
// application data for the given relation. A missing or invalid
// payload is logged and dropped without raising the availability
// notification; the provider is expected to republish a corrected
// value.
func (r *Requirer) HandleRelationChanged(relationID int) error {
	settings, err := r.config.Backend.RemoteApplicationSettings(relationID)
	if err != nil {
		return errors.Trace(err)
	}
	if len(settings) == 0 {
		logger.Debugf("no application data on relation %d yet", relationID)
		return nil
	}
	if err := validateSettings(settings); err != nil {
		logger.Warningf("invalid relation data on relation %d: %v", relationID, err)
		return nil
	}
	r.config.NRFAvailable <- settings[urlKey]
	return nil
}
