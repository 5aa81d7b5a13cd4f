// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// nrfoperatord supervises a 5G NRF workload container: it renders
// the NRF configuration from relation data, drives the container's
// service plan through Pebble, and publishes the NRF URL to every
// requirer application. Lifecycle events arrive over a unix socket
// maintained by the surrounding runtime.
package main

import (
	"os"

	"github.com/juju/cmd/v4"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("nrfoperator.cmd")

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		logger.Criticalf("%v", err)
		os.Exit(2)
	}
	os.Exit(cmd.Main(newOperatorCommand(), ctx, os.Args[1:]))
}
