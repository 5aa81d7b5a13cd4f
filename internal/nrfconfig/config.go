// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package nrfconfig renders the NRF workload configuration file.
// Rendering is a pure function of its parameters: identical inputs
// always produce byte-identical output, which the operator relies on
// to skip redundant writes and restarts.
package nrfconfig

import (
	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

// SchemeHTTP and SchemeHTTPS are the two service binding schemes the
// workload supports. HTTPS is used once TLS material is in place.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// Params holds every input the configuration document depends on.
type Params struct {
	DatabaseName string
	DatabaseURL  string
	SBIPort      int
	PodIP        string
	Scheme       string
}

// Validate returns an error if the params cannot produce a valid
// configuration document.
func (p Params) Validate() error {
	if p.DatabaseName == "" {
		return errors.NotValidf("empty DatabaseName")
	}
	if p.DatabaseURL == "" {
		return errors.NotValidf("empty DatabaseURL")
	}
	if p.SBIPort <= 0 {
		return errors.NotValidf("SBI port %d", p.SBIPort)
	}
	if p.Scheme != SchemeHTTP && p.Scheme != SchemeHTTPS {
		return errors.NotValidf("scheme %q", p.Scheme)
	}
	return nil
}

type document struct {
	Info          info          `yaml:"info"`
	Configuration configuration `yaml:"configuration"`
	Logger        loggerConfig  `yaml:"logger"`
}

type info struct {
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type configuration struct {
	MongoDBName     string   `yaml:"MongoDBName"`
	MongoDBURL      string   `yaml:"MongoDBUrl"`
	SBI             sbi      `yaml:"sbi"`
	DefaultPlmnID   plmnID   `yaml:"DefaultPlmnId"`
	ServiceNameList []string `yaml:"serviceNameList"`
}

type sbi struct {
	Scheme       string `yaml:"scheme"`
	RegisterIPv4 string `yaml:"registerIPv4"`
	BindingIPv4  string `yaml:"bindingIPv4"`
	Port         int    `yaml:"port"`
}

type plmnID struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

type loggerConfig struct {
	NRF componentLogger `yaml:"NRF"`
}

type componentLogger struct {
	ReportCaller bool   `yaml:"ReportCaller"`
	DebugLevel   string `yaml:"debugLevel"`
}

// Render produces the nrfcfg.yaml document content.
func Render(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	binding := p.PodIP
	if binding == "" {
		binding = "0.0.0.0"
	}
	doc := document{
		Info: info{
			Version:     "1.0.0",
			Description: "NRF initial local configuration",
		},
		Configuration: configuration{
			MongoDBName: p.DatabaseName,
			MongoDBURL:  p.DatabaseURL,
			SBI: sbi{
				Scheme:       p.Scheme,
				RegisterIPv4: "nrf",
				BindingIPv4:  binding,
				Port:         p.SBIPort,
			},
			DefaultPlmnID: plmnID{
				MCC: "208",
				MNC: "93",
			},
			ServiceNameList: []string{"nnrf-nfm", "nnrf-disc"},
		},
		Logger: loggerConfig{
			NRF: componentLogger{
				ReportCaller: false,
				DebugLevel:   "info",
			},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(out), nil
}
