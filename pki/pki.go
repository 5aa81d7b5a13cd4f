// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package pki generates the private key and certificate signing
// request material the operator stores in the workload container.
// Certificate issuance itself is the business of the external
// certificates collaborator.
package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"

	"github.com/juju/errors"
)

// GeneratePrivateKey returns a new PEM-encoded RSA 2048 private key.
func GeneratePrivateKey() (string, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return "", errors.Trace(err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	return string(pem.EncodeToMemory(block)), nil
}

// GenerateCSR returns a PEM-encoded certificate signing request for
// the given subject, signed with the given PEM-encoded private key.
func GenerateCSR(privateKeyPEM, commonName string) (string, error) {
	block, _ := pem.Decode([]byte(privateKeyPEM))
	if block == nil {
		return "", errors.NotValidf("private key material")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", errors.Annotate(err, "cannot parse private key")
	}
	template := &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: commonName},
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return "", errors.Annotate(err, "cannot create CSR")
	}
	csr := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: der,
	})
	return string(csr), nil
}
