// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package registry is the type-keyed backend service table described in
// spec.md §4.F: components register a concrete implementation of some
// interface (a BufferService, a window backend, an audio backend) under
// its reflect.Type, and later look it up by the same type without either
// side depending on the concrete package.
package registry

import (
	"fmt"
	"reflect"
	"sync"
)

// BackendRegistry is a thread-safe table from interface type to a single
// registered implementation of that type. It mirrors the
// audio.New()/render.New() "one backend per capability" pattern, but
// generalized so any core package can publish or discover a service
// without an import cycle back to the concrete backend.
type BackendRegistry struct {
	mu       sync.RWMutex
	services map[reflect.Type]any
}

// NewBackendRegistry creates an empty registry.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{services: make(map[reflect.Type]any)}
}

// typeKeyOf returns the reflect.Type to key the table on. Interface type
// parameters infer to their static type even when the boxed value is a
// concrete pointer, so RegisterService[BufferService](reg, impl) stores
// under BufferService's type, not impl's — that's the point: callers
// look up by interface, never by concrete backend.
func typeKeyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// RegisterService installs svc as the implementation of T, replacing any
// previously registered implementation.
func RegisterService[T any](r *BackendRegistry, svc T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[typeKeyOf[T]()] = svc
}

// GetService retrieves the implementation registered for T. ok is false
// if nothing has been registered for T yet.
func GetService[T any](r *BackendRegistry) (svc T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, found := r.services[typeKeyOf[T]()]
	if !found {
		return svc, false
	}
	svc, ok = v.(T)
	return svc, ok
}

// MustGetService is GetService but panics if T has no registered
// implementation, for call sites where a missing backend is a
// configuration error rather than a recoverable condition.
func MustGetService[T any](r *BackendRegistry) T {
	svc, ok := GetService[T](r)
	if !ok {
		var zero T
		panic(fmt.Sprintf("registry: no service registered for %T", zero))
	}
	return svc
}

// HasService reports whether T has a registered implementation.
func HasService[T any](r *BackendRegistry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.services[typeKeyOf[T]()]
	return found
}

// UnregisterService removes T's implementation, if any.
func UnregisterService[T any](r *BackendRegistry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, typeKeyOf[T]())
}

// ClearAllServices empties the registry, used by engine.End() teardown.
func (r *BackendRegistry) ClearAllServices() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[reflect.Type]any)
}

// Len reports how many distinct service types are currently registered.
func (r *BackendRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}
