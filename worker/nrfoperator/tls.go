// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package nrfoperator

import (
	"github.com/juju/errors"

	"github.com/canonical/sdcore-nrf-operator/pki"
)

const (
	certificateCommonName = "nrf.sdcore"

	privateKeyPath  = "/free5gc/support/TLS/nrf.key"
	csrPath         = "/free5gc/support/TLS/nrf.csr"
	certificatePath = "/free5gc/support/TLS/nrf.pem"
)

// handleCertificatesRelationCreated stores a fresh private key in
// the container. The key never leaves the workload; only the CSR
// derived from it does.
func (w *Worker) handleCertificatesRelationCreated() error {
	if !w.config.Container.Connected() {
		return errRetry
	}
	key, err := pki.GeneratePrivateKey()
	if err != nil {
		return errors.Trace(err)
	}
	if err := w.config.Container.Push(privateKeyPath, key); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("generated private key")
	return nil
}

// handleCertificatesRelationJoined derives a CSR from the stored
// key, stores it, and hands it to the certificate collaborator.
func (w *Worker) handleCertificatesRelationJoined() error {
	if !w.config.Container.Connected() {
		return errRetry
	}
	keyStored, err := w.config.Container.Exists(privateKeyPath)
	if err != nil {
		return errors.Trace(err)
	}
	if !keyStored {
		return errRetry
	}
	key, err := w.config.Container.Pull(privateKeyPath)
	if err != nil {
		return errors.Trace(err)
	}
	csr, err := pki.GenerateCSR(key, certificateCommonName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := w.config.Container.Push(csrPath, csr); err != nil {
		return errors.Trace(err)
	}
	if err := w.config.CertificateRequester.RequestCertificate(csr); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("requested certificate for %q", certificateCommonName)
	return nil
}

// handleCertificatesRelationBroken removes every piece of stored TLS
// material, reverting the workload to plain HTTP on the next
// reconcile.
func (w *Worker) handleCertificatesRelationBroken() error {
	if !w.config.Container.Connected() {
		return errRetry
	}
	for _, path := range []string{certificatePath, privateKeyPath, csrPath} {
		if err := w.config.Container.RemovePath(path); err != nil {
			return errors.Trace(err)
		}
	}
	logger.Infof("removed TLS material")
	return nil
}

// handleCertificateAvailable stores an issued certificate, but only
// when it answers the CSR this unit actually has outstanding. A
// certificate for a stale or foreign CSR is dropped.
func (w *Worker) handleCertificateAvailable(certificate, eventCSR string) error {
	if !w.config.Container.Connected() {
		return errRetry
	}
	csrStored, err := w.config.Container.Exists(csrPath)
	if err != nil {
		return errors.Trace(err)
	}
	if !csrStored {
		logger.Warningf("certificate received with no CSR outstanding, ignoring")
		return nil
	}
	storedCSR, err := w.config.Container.Pull(csrPath)
	if err != nil {
		return errors.Trace(err)
	}
	if storedCSR != eventCSR {
		logger.Warningf("certificate does not answer the stored CSR, ignoring")
		return nil
	}
	if err := w.config.Container.Push(certificatePath, certificate); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("stored certificate")
	return nil
}

// handleCertificateExpiring re-requests only when the expiring
// certificate is the one this unit currently holds.
func (w *Worker) handleCertificateExpiring(certificate string) error {
	if !w.config.Container.Connected() {
		return errRetry
	}
	stored, err := w.config.Container.Pull(certificatePath)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			logger.Debugf("no certificate stored, nothing to renew")
			return nil
		}
		return errors.Trace(err)
	}
	if stored != certificate {
		logger.Debugf("expiring certificate is not the stored one, ignoring")
		return nil
	}
	key, err := w.config.Container.Pull(privateKeyPath)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			return errRetry
		}
		return errors.Trace(err)
	}
	csr, err := pki.GenerateCSR(key, certificateCommonName)
	if err != nil {
		return errors.Trace(err)
	}
	if err := w.config.Container.Push(csrPath, csr); err != nil {
		return errors.Trace(err)
	}
	if err := w.config.CertificateRequester.RequestCertificate(csr); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("requested certificate renewal")
	return nil
}
