// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package statedir implements persistent local storage of the
// application's relations as one YAML document per relation, named
// by relation ID. The external runtime maintains the remote side of
// each document; the operator reads it and writes the local side.
package statedir

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v2"

	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

var logger = loggo.GetLogger("nrfoperator.relation.statedir")

// document is the on-disk form of one relation.
type document struct {
	// Do not use omitempty, 0 is a valid id.
	ID                int               `yaml:"id"`
	Endpoint          string            `yaml:"endpoint"`
	RemoteApplication string            `yaml:"remote-application"`
	RemoteSettings    relation.Settings `yaml:"remote-settings,omitempty"`
	LocalSettings     relation.Settings `yaml:"local-settings,omitempty"`
}

// StateDir is a filesystem-backed relation.Backend. Concurrent
// writers to the same directory must go through a single StateDir.
type StateDir struct {
	path string
}

var _ relation.Backend = (*StateDir)(nil)

// NewStateDir returns a StateDir rooted at path, creating the
// directory if necessary.
func NewStateDir(path string) (*StateDir, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, errors.Annotate(err, "cannot create relation state directory")
	}
	return &StateDir{path: path}, nil
}

func (d *StateDir) file(relationID int) string {
	return filepath.Join(d.path, strconv.Itoa(relationID)+".yaml")
}

func (d *StateDir) read(relationID int) (*document, error) {
	data, err := os.ReadFile(d.file(relationID))
	if os.IsNotExist(err) {
		return nil, relation.NotFoundError(relationID)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Annotatef(err, "cannot read state of relation %d", relationID)
	}
	return &doc, nil
}

func (d *StateDir) write(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(utils.AtomicWriteFile(d.file(doc.ID), data, 0644))
}

// Join records a new relation. The remote application name must be a
// valid application name, and the relation ID must not be in use:
// rejoining would silently discard both data bags.
func (d *StateDir) Join(rel relation.Relation) error {
	if !names.IsValidApplication(rel.RemoteApplication) {
		return errors.NotValidf("remote application name %q", rel.RemoteApplication)
	}
	if rel.Endpoint == "" {
		return errors.NotValidf("empty endpoint")
	}
	if _, err := os.Stat(d.file(rel.ID)); err == nil {
		return errors.AlreadyExistsf("relation %d", rel.ID)
	} else if !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	return d.write(&document{
		ID:                rel.ID,
		Endpoint:          rel.Endpoint,
		RemoteApplication: rel.RemoteApplication,
	})
}

// Depart removes all state for the given relation. Departing a
// relation that was never joined is not an error.
func (d *StateDir) Depart(relationID int) error {
	err := os.Remove(d.file(relationID))
	if err != nil && !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	return nil
}

// SetRemoteApplicationSettings replaces the remote data bag, as seen
// in the most recent change notification.
func (d *StateDir) SetRemoteApplicationSettings(relationID int, settings relation.Settings) error {
	doc, err := d.read(relationID)
	if err != nil {
		return errors.Trace(err)
	}
	doc.RemoteSettings = settings.Clone()
	return errors.Trace(d.write(doc))
}

// Relations is part of relation.Backend.
func (d *StateDir) Relations(endpoint string) ([]relation.Relation, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var relations []relation.Relation
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".yaml" {
			continue
		}
		relationID, err := strconv.Atoi(name[:len(name)-len(".yaml")])
		if err != nil {
			logger.Warningf("ignoring foreign file %q in relation state directory", name)
			continue
		}
		doc, err := d.read(relationID)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if doc.Endpoint != endpoint {
			continue
		}
		relations = append(relations, relation.Relation{
			ID:                doc.ID,
			Endpoint:          doc.Endpoint,
			RemoteApplication: doc.RemoteApplication,
		})
	}
	return relations, nil
}

// RemoteApplicationSettings is part of relation.Backend.
func (d *StateDir) RemoteApplicationSettings(relationID int) (relation.Settings, error) {
	doc, err := d.read(relationID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if doc.RemoteSettings == nil {
		return relation.Settings{}, nil
	}
	return doc.RemoteSettings.Clone(), nil
}

// LocalApplicationSettings is part of relation.Backend.
func (d *StateDir) LocalApplicationSettings(relationID int) (relation.Settings, error) {
	doc, err := d.read(relationID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if doc.LocalSettings == nil {
		return relation.Settings{}, nil
	}
	return doc.LocalSettings.Clone(), nil
}

// UpdateApplicationSettings is part of relation.Backend.
func (d *StateDir) UpdateApplicationSettings(relationID int, changes relation.Settings) error {
	doc, err := d.read(relationID)
	if err != nil {
		return errors.Trace(err)
	}
	if doc.LocalSettings == nil {
		doc.LocalSettings = relation.Settings{}
	}
	for key, value := range changes {
		doc.LocalSettings[key] = value
	}
	return errors.Trace(d.write(doc))
}
