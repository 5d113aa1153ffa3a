package sched

import (
	"reflect"
	"testing"
)

type tuning struct {
	Gravity float64
}

type score int

func TestResourcesInstallAndLookup(t *testing.T) {
	res := NewResources()

	if res.Len() != 0 {
		t.Errorf("expected empty table, got %d entries", res.Len())
	}
	if HasResource[tuning](res) {
		t.Error("expected tuning to be absent")
	}
	if ResourceRef[tuning](res) != nil {
		t.Error("expected nil ref for missing resource")
	}

	AddResource(res, tuning{Gravity: 9.81})
	AddResource(res, score(10))

	if res.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", res.Len())
	}
	if !HasResource[tuning](res) || !HasResource[score](res) {
		t.Error("expected both resources to be present")
	}
	if got := ResourceRef[tuning](res).Gravity; got != 9.81 {
		t.Errorf("expected Gravity=9.81, got %f", got)
	}
}

func TestResourcesOverwriteKeepsPointerIdentity(t *testing.T) {
	res := NewResources()

	AddResource(res, score(1))
	before := ResourceRef[score](res)

	AddResource(res, score(42))
	after := ResourceRef[score](res)

	if before != after {
		t.Error("overwriting a resource must assign in place, not re-box")
	}
	if *after != 42 {
		t.Errorf("expected 42, got %d", *after)
	}
}

func TestResourcesEnsureDefault(t *testing.T) {
	res := NewResources()

	tuningType := reflect.TypeOf(tuning{})
	res.ensureDefault(tuningType)

	if !res.Has(tuningType) {
		t.Fatal("expected default to be installed")
	}
	if got := ResourceRef[tuning](res).Gravity; got != 0 {
		t.Errorf("expected zero default, got %f", got)
	}

	// An existing value survives a later default installation.
	AddResource(res, tuning{Gravity: 1})
	res.ensureDefault(tuningType)
	if got := ResourceRef[tuning](res).Gravity; got != 1 {
		t.Errorf("expected existing value to survive, got %f", got)
	}
}

func TestResourcesTypesSorted(t *testing.T) {
	res := NewResources()
	AddResource(res, tuning{})
	AddResource(res, score(0))

	types := res.Types()
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
	for i := 1; i < len(types); i++ {
		if types[i-1].String() > types[i].String() {
			t.Errorf("types not sorted: %s before %s", types[i-1], types[i])
		}
	}
}

func TestTypeIdStability(t *testing.T) {
	a := typeId(reflect.TypeOf(tuning{}))
	b := typeId(reflect.TypeOf(tuning{}))
	c := typeId(reflect.TypeOf(score(0)))

	if a != b {
		t.Error("typeId must be stable for a type")
	}
	if a == c {
		t.Error("typeId must differ between types")
	}
}
