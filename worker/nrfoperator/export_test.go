// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfoperator

import (
	"github.com/canonical/sdcore-nrf-operator/core/status"
)

var (
	ErrRetry        = errRetry
	DesiredService  = desiredService
	NRFURL          = nrfURL
	ConfigPath      = configPath
	PrivateKeyPath  = privateKeyPath
	CSRPath         = csrPath
	CertificatePath = certificatePath
)

// NewDormantWorker returns a Worker whose event loop is not running,
// for driving handlers synchronously in tests.
func NewDormantWorker(config Config) *Worker {
	return &Worker{config: config}
}

// Handle exposes event dispatch for tests.
func (w *Worker) Handle(event Event) (*status.StatusInfo, error) {
	return w.handle(event)
}
