// Package schema maintains an immutable snapshot of the queryable tables and
// views in the sales database. The snapshot grounds prompt construction and
// identifier validation for every agent turn.
package schema

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	// Samples holds a few distinct values captured at introspection time,
	// rendered as text. Empty for note-like text columns.
	Samples []string `json:"samples,omitempty"`
}

type ObjectKind string

const (
	KindTable ObjectKind = "table"
	KindView  ObjectKind = "view"
)

type Object struct {
	Name    string     `json:"name"`
	Kind    ObjectKind `json:"kind"`
	Columns []Column   `json:"columns"`
}

// Descriptor is a point-in-time snapshot of the exposed namespace. It is
// passed by value into each turn and never mutated after construction.
type Descriptor struct {
	Objects    []Object  `json:"objects"`
	CapturedAt time.Time `json:"captured_at"`
}

func (d Descriptor) Object(name string) (Object, bool) {
	for _, object := range d.Objects {
		if object.Name == name {
			return object, true
		}
	}
	return Object{}, false
}

func (d Descriptor) HasObject(name string) bool {
	_, ok := d.Object(name)
	return ok
}

func (d Descriptor) IsEmpty() bool {
	return len(d.Objects) == 0
}

type Introspector interface {
	Introspect(ctx context.Context) (Descriptor, error)
}

// Catalog caches the current descriptor. Describe introspects lazily on
// first use; Refresh rebuilds the descriptor and swaps the cached reference
// atomically so concurrent readers never observe a half-built snapshot.
type Catalog struct {
	introspector Introspector

	refreshMu sync.Mutex
	current   atomic.Pointer[Descriptor]
}

func NewCatalog(introspector Introspector) *Catalog {
	return &Catalog{introspector: introspector}
}

func (c *Catalog) Describe(ctx context.Context) (Descriptor, error) {
	if cached := c.current.Load(); cached != nil {
		return *cached, nil
	}
	return c.Refresh(ctx)
}

func (c *Catalog) Refresh(ctx context.Context) (Descriptor, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	descriptor, err := c.introspector.Introspect(ctx)
	if err != nil {
		return Descriptor{}, fmt.Errorf("introspect schema: %w", err)
	}
	if descriptor.IsEmpty() {
		return Descriptor{}, fmt.Errorf("schema introspection returned no objects")
	}
	c.current.Store(&descriptor)
	return descriptor, nil
}
