// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

import (
	"reflect"

	"github.com/juju/errors"
	"gopkg.in/yaml.v2"
)

// Service describes one supervised service entry in a layer or plan.
type Service struct {
	Override    string            `yaml:"override,omitempty"`
	Summary     string            `yaml:"summary,omitempty"`
	Startup     string            `yaml:"startup,omitempty"`
	Command     string            `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Equal reports whether two service entries are structurally
// identical. The operator restarts the workload only when the desired
// entry differs from the live one, so comparison must cover every
// field that affects the running process.
func (s Service) Equal(other Service) bool {
	return reflect.DeepEqual(s, other)
}

// Layer is a plan fragment pushed to the supervisor with
// override-replace semantics.
type Layer struct {
	Summary     string             `yaml:"summary,omitempty"`
	Description string             `yaml:"description,omitempty"`
	Services    map[string]Service `yaml:"services,omitempty"`
}

// MarshalBytes renders the layer as YAML for the supervisor's
// add-layer API.
func (l Layer) MarshalBytes() ([]byte, error) {
	data, err := yaml.Marshal(l)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}

// Plan is the effective service configuration currently applied in
// the supervisor, reduced to the parts the operator compares.
type Plan struct {
	Services map[string]Service `yaml:"services,omitempty"`
}

// ParsePlan decodes a plan document returned by the supervisor.
func ParsePlan(data []byte) (Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, errors.Annotate(err, "cannot parse plan")
	}
	return plan, nil
}

// ServiceMatches reports whether the plan already contains a service
// entry structurally equal to the given one.
func (p Plan) ServiceMatches(name string, desired Service) bool {
	current, ok := p.Services[name]
	if !ok {
		return false
	}
	return current.Equal(desired)
}
