// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfconfig_test

import (
	stdtesting "testing"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"
	"gopkg.in/yaml.v2"

	"github.com/canonical/sdcore-nrf-operator/internal/nrfconfig"
)

func Test(t *stdtesting.T) {
	gc.TestingT(t)
}

type RenderSuite struct{}

var _ = gc.Suite(&RenderSuite{})

func validParams() nrfconfig.Params {
	return nrfconfig.Params{
		DatabaseName: "free5gc",
		DatabaseURL:  "http://dummy",
		SBIPort:      29510,
		PodIP:        "1.1.1.1",
		Scheme:       nrfconfig.SchemeHTTP,
	}
}

func (*RenderSuite) TestRenderIsPure(c *gc.C) {
	first, err := nrfconfig.Render(validParams())
	c.Assert(err, jc.ErrorIsNil)
	second, err := nrfconfig.Render(validParams())
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(second, gc.Equals, first)
}

func (*RenderSuite) TestRenderContent(c *gc.C) {
	content, err := nrfconfig.Render(validParams())
	c.Assert(err, jc.ErrorIsNil)

	var doc map[string]interface{}
	err = yaml.Unmarshal([]byte(content), &doc)
	c.Assert(err, jc.ErrorIsNil)

	c.Check(content, jc.Contains, "MongoDBUrl: http://dummy")
	c.Check(content, jc.Contains, "MongoDBName: free5gc")
	c.Check(content, jc.Contains, "port: 29510")
	c.Check(content, jc.Contains, "bindingIPv4: 1.1.1.1")
	c.Check(content, jc.Contains, "scheme: http")
}

func (*RenderSuite) TestRenderHTTPS(c *gc.C) {
	params := validParams()
	params.Scheme = nrfconfig.SchemeHTTPS
	content, err := nrfconfig.Render(params)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(content, jc.Contains, "scheme: https")
}

func (*RenderSuite) TestRenderDefaultsBinding(c *gc.C) {
	params := validParams()
	params.PodIP = ""
	content, err := nrfconfig.Render(params)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(content, jc.Contains, "bindingIPv4: 0.0.0.0")
}

func (*RenderSuite) TestRenderValidatesParams(c *gc.C) {
	params := validParams()
	params.DatabaseURL = ""
	_, err := nrfconfig.Render(params)
	c.Assert(err, jc.ErrorIs, errors.NotValid)
}
