// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload_test

import (
	stdtesting "testing"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/sdcore-nrf-operator/internal/workload"
)

func Test(t *stdtesting.T) {
	gc.TestingT(t)
}

type PlanSuite struct{}

var _ = gc.Suite(&PlanSuite{})

func nrfService() workload.Service {
	return workload.Service{
		Override: "replace",
		Startup:  "enabled",
		Command:  "/free5gc/nrf/nrf --nrfcfg /etc/nrf/nrfcfg.yaml",
		Environment: map[string]string{
			"GRPC_TRACE": "all",
		},
	}
}

func (*PlanSuite) TestParsePlan(c *gc.C) {
	plan, err := workload.ParsePlan([]byte(`
services:
  nrf:
    override: replace
    startup: enabled
    command: /free5gc/nrf/nrf --nrfcfg /etc/nrf/nrfcfg.yaml
    environment:
      GRPC_TRACE: all
`))
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(plan.Services, gc.HasLen, 1)
	c.Assert(plan.Services["nrf"], jc.DeepEquals, nrfService())
}

func (*PlanSuite) TestParsePlanEmpty(c *gc.C) {
	plan, err := workload.ParsePlan(nil)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(plan.Services, gc.HasLen, 0)
}

func (*PlanSuite) TestParsePlanInvalid(c *gc.C) {
	_, err := workload.ParsePlan([]byte("services: [not a map"))
	c.Assert(err, gc.ErrorMatches, "cannot parse plan: .*")
}

func (*PlanSuite) TestServiceMatches(c *gc.C) {
	plan := workload.Plan{Services: map[string]workload.Service{"nrf": nrfService()}}
	c.Check(plan.ServiceMatches("nrf", nrfService()), jc.IsTrue)

	changed := nrfService()
	changed.Command = "/bin/false"
	c.Check(plan.ServiceMatches("nrf", changed), jc.IsFalse)
	c.Check(plan.ServiceMatches("amf", nrfService()), jc.IsFalse)
}

func (*PlanSuite) TestLayerRoundTrip(c *gc.C) {
	layer := workload.Layer{
		Summary:  "nrf layer",
		Services: map[string]workload.Service{"nrf": nrfService()},
	}
	data, err := layer.MarshalBytes()
	c.Assert(err, jc.ErrorIsNil)
	plan, err := workload.ParsePlan(data)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(plan.ServiceMatches("nrf", nrfService()), jc.IsTrue)
}
