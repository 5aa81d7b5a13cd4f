// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfoperator

import (
	"fmt"
	"path"

	"github.com/juju/errors"

	"github.com/canonical/sdcore-nrf-operator/core/status"
	"github.com/canonical/sdcore-nrf-operator/internal/nrfconfig"
	"github.com/canonical/sdcore-nrf-operator/internal/workload"
)

const (
	// ServiceName is the supervised workload service.
	ServiceName = "nrf"

	// SBIPort is the NRF's service-based-interface port.
	SBIPort = 29510

	baseConfigPath = "/etc/nrf"
	configFileName = "nrfcfg.yaml"

	layerLabel = "nrf"
)

var configPath = path.Join(baseConfigPath, configFileName)

// nrfURL returns the workload's reachable endpoint for the given
// scheme. The host is the well-known service name.
func nrfURL(scheme string) string {
	return fmt.Sprintf("%s://%s:%d", scheme, ServiceName, SBIPort)
}

// waiting and blocked wrap a reason into a deferred-status result.
func waiting(message string) (*status.StatusInfo, error) {
	return &status.StatusInfo{Status: status.Waiting, Message: message}, errRetry
}

func blocked(message string) (*status.StatusInfo, error) {
	return &status.StatusInfo{Status: status.Blocked, Message: message}, errRetry
}

// reconcile runs the full readiness chain and, once everything is in
// place, converges the workload: render config, push on change,
// apply the plan, restart when needed, publish the URL. The chain is
// re-evaluated from scratch on every event; no partial progress is
// retained between passes.
func (w *Worker) reconcile() (*status.StatusInfo, error) {
	if !w.config.Container.Connected() {
		return waiting("Waiting for container to be ready")
	}
	relationCreated, err := w.config.Database.RelationCreated()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !relationCreated {
		return blocked("Waiting for database relation to be created")
	}
	resourceCreated, err := w.config.Database.ResourceCreated()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !resourceCreated {
		return waiting("Waiting for the database to be available")
	}
	dbInfo, err := w.config.Database.Info()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if dbInfo.URL() == "" {
		return waiting("Waiting for database URI")
	}
	storageAttached, err := w.config.Container.Exists(baseConfigPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !storageAttached {
		return waiting("Waiting for storage to be attached")
	}
	podIP, err := w.config.Addresses.PrivateAddress()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if podIP == "" {
		return waiting("Waiting for pod IP address to be available")
	}

	scheme, err := w.scheme()
	if err != nil {
		return nil, errors.Trace(err)
	}
	restart, err := w.writeConfig(dbInfo.URL(), podIP, scheme)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := w.ensureWorkload(restart); err != nil {
		return nil, errors.Trace(err)
	}
	if err := w.publishURL(nrfURL(scheme)); err != nil {
		return nil, errors.Trace(err)
	}
	return &status.StatusInfo{Status: status.Active}, nil
}

// scheme returns https once a certificate is stored in the
// container, http otherwise.
func (w *Worker) scheme() (string, error) {
	certStored, err := w.config.Container.Exists(certificatePath)
	if err != nil {
		return "", errors.Trace(err)
	}
	if certStored {
		return nrfconfig.SchemeHTTPS, nil
	}
	return nrfconfig.SchemeHTTP, nil
}

// writeConfig renders the desired config content and pushes it only
// when it differs from what is already on disk. It reports whether a
// restart is needed: an unchanged file never triggers one, however
// many redundant events fired.
func (w *Worker) writeConfig(databaseURL, podIP, scheme string) (restart bool, err error) {
	content, err := nrfconfig.Render(nrfconfig.Params{
		DatabaseName: w.config.Database.DatabaseName(),
		DatabaseURL:  databaseURL,
		SBIPort:      SBIPort,
		PodIP:        podIP,
		Scheme:       scheme,
	})
	if err != nil {
		return false, errors.Trace(err)
	}
	matches, err := w.configMatches(content)
	if err != nil {
		return false, errors.Trace(err)
	}
	if matches {
		return false, nil
	}
	if err := w.config.Container.Push(configPath, content); err != nil {
		return false, errors.Trace(err)
	}
	logger.Infof("pushed %s", configFileName)
	return true, nil
}

// configMatches reports whether the on-disk config equals the
// desired content. An absent file counts as a mismatch.
func (w *Worker) configMatches(content string) (bool, error) {
	exists, err := w.config.Container.Exists(configPath)
	if err != nil {
		return false, errors.Trace(err)
	}
	if !exists {
		return false, nil
	}
	existing, err := w.config.Container.Pull(configPath)
	if err != nil {
		return false, errors.Trace(err)
	}
	return existing == content, nil
}

// desiredService is the service entry the plan must carry.
func desiredService() workload.Service {
	return workload.Service{
		Override: "replace",
		Startup:  "enabled",
		Command:  fmt.Sprintf("/free5gc/nrf/nrf --nrfcfg %s", configPath),
		Environment: map[string]string{
			"GRPC_GO_LOG_VERBOSITY_LEVEL": "99",
			"GRPC_GO_LOG_SEVERITY_LEVEL":  "info",
			"GRPC_TRACE":                  "all",
			"GRPC_VERBOSITY":              "debug",
			"MANAGED_BY_CONFIG_POD":       "true",
		},
	}
}

// ensureWorkload applies the service plan and (re)starts the service
// on a structural plan difference or an explicit restart request,
// never unconditionally.
func (w *Worker) ensureWorkload(restart bool) error {
	plan, err := w.config.Container.Plan()
	if err != nil {
		return errors.Trace(err)
	}
	desired := desiredService()
	if plan.ServiceMatches(ServiceName, desired) && !restart {
		return nil
	}
	layer := workload.Layer{
		Summary:     "nrf layer",
		Description: "pebble config layer for nrf",
		Services:    map[string]workload.Service{ServiceName: desired},
	}
	if err := w.config.Container.AddLayer(layerLabel, layer); err != nil {
		return errors.Trace(err)
	}
	if err := w.config.Container.Restart(ServiceName); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("restarted %s service", ServiceName)
	return nil
}

// publishURL broadcasts the endpoint to every requirer relation.
// Only the leader writes; on a non-leader unit publication is someone
// else's job and is skipped quietly.
func (w *Worker) publishURL(url string) error {
	if err := w.config.Leadership.Check(); err != nil {
		logger.Debugf("not leader, skipping URL publication")
		return nil
	}
	return errors.Trace(w.config.Provider.PublishAll(w.config.Leadership, url))
}

// handleDatabaseRelationJoined asks the provider for the database by
// writing its name into the relation. Only the leader speaks for the
// application; followers rely on the leader having done it.
func (w *Worker) handleDatabaseRelationJoined() error {
	if err := w.config.Leadership.Check(); err != nil {
		return nil
	}
	return errors.Trace(w.config.Database.RequestDatabase(w.config.Leadership))
}

// handleNRFRelationJoined publishes the URL to a newly joined
// requirer without rerunning the whole chain, provided the workload
// is already up. If it is not, the relation will be served by the
// publication step of the next full reconcile.
func (w *Worker) handleNRFRelationJoined(relationID int) error {
	if err := w.config.Leadership.Check(); err != nil {
		return nil
	}
	if !w.config.Container.Connected() {
		return nil
	}
	running, err := w.config.Container.ServiceRunning(ServiceName)
	if err != nil {
		return errors.Trace(err)
	}
	if !running {
		return nil
	}
	scheme, err := w.scheme()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(w.config.Provider.Publish(w.config.Leadership, nrfURL(scheme), relationID))
}
