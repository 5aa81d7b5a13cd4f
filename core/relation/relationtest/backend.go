// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package relationtest provides an in-memory relation backend for
// use in tests.
package relationtest

import (
	"sync"

	"github.com/canonical/sdcore-nrf-operator/core/relation"
)

// Backend is an in-memory implementation of relation.Backend.
type Backend struct {
	mu     sync.Mutex
	nextID int

	relations map[int]relation.Relation
	remote    map[int]relation.Settings
	local     map[int]relation.Settings
}

// NewBackend returns an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		relations: make(map[int]relation.Relation),
		remote:    make(map[int]relation.Settings),
		local:     make(map[int]relation.Settings),
	}
}

// AddRelation establishes a relation on the given endpoint and
// returns its ID.
func (b *Backend) AddRelation(endpoint, remoteApplication string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.relations[id] = relation.Relation{
		ID:                id,
		Endpoint:          endpoint,
		RemoteApplication: remoteApplication,
	}
	b.remote[id] = relation.Settings{}
	b.local[id] = relation.Settings{}
	return id
}

// RemoveRelation drops the relation and its data bags.
func (b *Backend) RemoveRelation(relationID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.relations, relationID)
	delete(b.remote, relationID)
	delete(b.local, relationID)
}

// SetRemoteApplicationSettings replaces the remote application data
// bag for the given relation.
func (b *Backend) SetRemoteApplicationSettings(relationID int, settings relation.Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remote[relationID] = settings.Clone()
}

// Relations is part of relation.Backend.
func (b *Backend) Relations(endpoint string) ([]relation.Relation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []relation.Relation
	for _, rel := range b.relations {
		if rel.Endpoint == endpoint {
			result = append(result, rel)
		}
	}
	return result, nil
}

// RemoteApplicationSettings is part of relation.Backend.
func (b *Backend) RemoteApplicationSettings(relationID int) (relation.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	settings, ok := b.remote[relationID]
	if !ok {
		return nil, relation.NotFoundError(relationID)
	}
	return settings.Clone(), nil
}

// LocalApplicationSettings is part of relation.Backend.
func (b *Backend) LocalApplicationSettings(relationID int) (relation.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	settings, ok := b.local[relationID]
	if !ok {
		return nil, relation.NotFoundError(relationID)
	}
	return settings.Clone(), nil
}

// UpdateApplicationSettings is part of relation.Backend.
func (b *Backend) UpdateApplicationSettings(relationID int, changes relation.Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	settings, ok := b.local[relationID]
	if !ok {
		return relation.NotFoundError(relationID)
	}
	for k, v := range changes {
		settings[k] = v
	}
	return nil
}
