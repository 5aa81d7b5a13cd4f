// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package fivegnrf

import (
	"net/url"

	"github.com/juju/errors"
	"github.com/juju/schema"

	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

const urlKey = "url"

// providerSchema describes the provider application data bag. The
// requirer side of the interface carries no payload. The same schema
// is applied to the assembled payload on both the publish and the
// receive path.
var providerSchema = schema.FieldMap(
	schema.Fields{
		urlKey: absoluteURL(),
	},
	schema.Defaults{},
)

// absoluteURL returns a checker accepting any absolute URL with a
// scheme and a host. The scheme is deliberately unrestricted: the
// workload endpoint is published as http or https depending on
// whether TLS material is in place.
func absoluteURL() schema.Checker {
	return urlChecker{}
}

type urlChecker struct{}

// Coerce is part of the schema.Checker interface.
func (urlChecker) Coerce(v interface{}, path []string) (interface{}, error) {
	coerced, err := schema.String().Coerce(v, path)
	if err != nil {
		return nil, err
	}
	raw := coerced.(string)
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, errors.NotValidf("URL %q", raw)
	}
	return raw, nil
}

// validateSettings checks an assembled provider payload against the
// interface schema.
func validateSettings(settings relation.Settings) error {
	payload := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		payload[k] = v
	}
	if _, err := providerSchema.Coerce(payload, nil); err != nil {
		return errors.Trace(err)
	}
	return nil
}
