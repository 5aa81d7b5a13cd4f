// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload_test

import (
	"github.com/canonical/pebble/client"
	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/sdcore-nrf-operator/internal/workload"
)

type PebbleSuite struct{}

var _ = gc.Suite(&PebbleSuite{})

func missingFileError() error {
	return &client.Error{
		StatusCode: 404,
		Message:    `stat /free5gc/support/TLS/nrf.pem: no such file or directory`,
	}
}

func (*PebbleSuite) TestPullMissingFileIsNotFound(c *gc.C) {
	err := workload.PullError("/free5gc/support/TLS/nrf.pem", missingFileError())
	c.Assert(err, jc.ErrorIs, errors.NotFound)
	c.Check(err, gc.ErrorMatches, `file "/free5gc/support/TLS/nrf.pem" not found`)
}

func (*PebbleSuite) TestPullOtherErrorIsNotNotFound(c *gc.C) {
	daemonErr := &client.Error{StatusCode: 500, Message: "internal server error"}
	err := workload.PullError("/etc/nrf/nrfcfg.yaml", daemonErr)
	c.Assert(err, gc.NotNil)
	c.Check(errors.Is(err, errors.NotFound), jc.IsFalse)
	c.Check(err, gc.ErrorMatches, `cannot pull "/etc/nrf/nrfcfg.yaml": .*`)
}

func (*PebbleSuite) TestIsNotFoundSeesThroughAnnotation(c *gc.C) {
	annotated := errors.Annotatef(missingFileError(), "cannot stat %q", "/etc/nrf")
	c.Check(workload.IsNotFound(annotated), jc.IsTrue)
	c.Check(workload.IsNotFound(errors.New("boom")), jc.IsFalse)
}
