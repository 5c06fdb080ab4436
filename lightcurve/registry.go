// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package lightcurve

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownModel is returned by Lookup for an identifier nobody registered.
	ErrUnknownModel = errors.New("unknown lightcurve model")
	// ErrEmptyIdentifier is returned when a model declares an empty NameID.
	ErrEmptyIdentifier = errors.New("lightcurve model declares an empty identifier")
)

// DuplicateIdentifierError reports two implementations declaring the same NameID.
type DuplicateIdentifierError struct {
	ID string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("attempted to add duplicate lightcurve calculator name: %s", e.ID)
}

// Registry maps model identifiers to constructors.
// Lookups may run concurrently; Refresh is serialized against them.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Constructor
}

// Build indexes ctors by the identifier each model declares. It fails if any
// two constructors declare the same identifier, registering neither.
func Build(ctors []Constructor) (*Registry, error) {
	models := make(map[string]Constructor, len(ctors))
	for _, ctor := range ctors {
		id, err := identify(ctor)
		if err != nil {
			return nil, err
		}
		if _, exists := models[id]; exists {
			return nil, &DuplicateIdentifierError{ID: id}
		}
		models[id] = ctor
	}
	slog.Debug("Lightcurve registry built", "models", len(models))
	return &Registry{models: models}, nil
}

// Refresh inserts every constructor whose identifier is not yet registered
// and returns how many were added. Existing entries are never replaced.
func (r *Registry) Refresh(ctors []Constructor) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, ctor := range ctors {
		id, err := identify(ctor)
		if err != nil {
			return added, err
		}
		if _, exists := r.models[id]; exists {
			continue
		}
		r.models[id] = ctor
		added++
		slog.Debug("Registered lightcurve model", "name", id)
	}
	return added, nil
}

// Lookup returns the constructor registered under id.
func (r *Registry) Lookup(id string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctor, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)", ErrUnknownModel, id, strings.Join(r.namesLocked(), ", "))
	}
	return ctor, nil
}

// New looks up id and returns a fresh model instance.
func (r *Registry) New(id string) (Model, error) {
	ctor, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func identify(ctor Constructor) (string, error) {
	if ctor == nil {
		return "", errors.New("lightcurve constructor is nil")
	}
	m := ctor()
	if m == nil {
		return "", errors.New("lightcurve constructor returned nil")
	}
	id := m.NameID()
	if id == "" {
		return "", fmt.Errorf("%w (%T)", ErrEmptyIdentifier, m)
	}
	return id, nil
}
