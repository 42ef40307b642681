package schema

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"
)

type fakeIntrospector struct {
	calls      int
	descriptor Descriptor
	err        error
}

func (f *fakeIntrospector) Introspect(_ context.Context) (Descriptor, error) {
	f.calls++
	if f.err != nil {
		return Descriptor{}, f.err
	}
	return f.descriptor, nil
}

func testDescriptor(marker string) Descriptor {
	return Descriptor{
		Objects: []Object{
			{
				Name: "v_pipeline_snapshot",
				Kind: KindView,
				Columns: []Column{
					{Name: "account", Type: "VARCHAR"},
					{Name: "deal_stage", Type: "VARCHAR", Samples: []string{marker}},
				},
			},
			{
				Name: "accounts",
				Kind: KindTable,
				Columns: []Column{
					{Name: "account_id", Type: "BIGINT"},
					{Name: "account", Type: "VARCHAR"},
				},
			},
		},
		CapturedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestDescribeIsLazyAndCached(t *testing.T) {
	introspector := &fakeIntrospector{descriptor: testDescriptor("Engaging")}
	catalog := NewCatalog(introspector)

	first, err := catalog.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if introspector.calls != 1 {
		t.Fatalf("introspector calls = %d, want 1", introspector.calls)
	}

	// Mutate the underlying source; the cached snapshot must not change.
	introspector.descriptor = testDescriptor("Won")

	second, err := catalog.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if introspector.calls != 1 {
		t.Fatalf("introspector calls = %d, want 1 (cached)", introspector.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Describe() returned different descriptors: %#v vs %#v", first, second)
	}
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	introspector := &fakeIntrospector{descriptor: testDescriptor("Engaging")}
	catalog := NewCatalog(introspector)

	if _, err := catalog.Describe(context.Background()); err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	introspector.descriptor = testDescriptor("Won")
	refreshed, err := catalog.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := refreshed.Objects[0].Columns[1].Samples[0]; got != "Won" {
		t.Fatalf("refreshed sample = %q, want %q", got, "Won")
	}

	cached, err := catalog.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if !reflect.DeepEqual(refreshed, cached) {
		t.Fatal("Describe() after Refresh() should return the refreshed snapshot")
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	introspector := &fakeIntrospector{descriptor: testDescriptor("Engaging")}
	catalog := NewCatalog(introspector)

	before, err := catalog.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	introspector.err = fmt.Errorf("db is gone")
	if _, err := catalog.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error")
	}

	introspector.err = nil
	after, err := catalog.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("failed Refresh() must not clobber the cached snapshot")
	}
}

func TestRefreshRejectsEmptyNamespace(t *testing.T) {
	catalog := NewCatalog(&fakeIntrospector{descriptor: Descriptor{}})
	if _, err := catalog.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error for empty namespace")
	}
}

func TestDescriptorObjectLookup(t *testing.T) {
	descriptor := testDescriptor("Engaging")
	if _, ok := descriptor.Object("accounts"); !ok {
		t.Fatal("Object(accounts) should exist")
	}
	if descriptor.HasObject("orders") {
		t.Fatal("Object(orders) should not exist")
	}
}
