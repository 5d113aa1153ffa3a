package sched

import (
	"reflect"
	"sort"
)

// AccessSet declares the resource types a system reads and writes during
// execution. The dispatcher uses declared sets to plan which systems may run
// concurrently: two systems conflict if one writes a type the other reads
// or writes.
type AccessSet struct {
	reads  map[reflect.Type]struct{}
	writes map[reflect.Type]struct{}
}

// NewAccessSet creates an empty access set.
func NewAccessSet() *AccessSet {
	return &AccessSet{
		reads:  make(map[reflect.Type]struct{}),
		writes: make(map[reflect.Type]struct{}),
	}
}

// Reads declares a shared read of resource type T and returns the set for chaining.
func Reads[T any](a *AccessSet) *AccessSet {
	a.AddRead(reflect.TypeOf((*T)(nil)).Elem())
	return a
}

// Writes declares an exclusive write of resource type T and returns the set for chaining.
func Writes[T any](a *AccessSet) *AccessSet {
	a.AddWrite(reflect.TypeOf((*T)(nil)).Elem())
	return a
}

// AddRead declares shared reads of the given resource types.
func (a *AccessSet) AddRead(types ...reflect.Type) {
	for _, t := range types {
		a.reads[t] = struct{}{}
	}
}

// AddWrite declares exclusive writes of the given resource types.
func (a *AccessSet) AddWrite(types ...reflect.Type) {
	for _, t := range types {
		a.writes[t] = struct{}{}
	}
}

// ReadsType reports whether t is in the declared read set.
func (a *AccessSet) ReadsType(t reflect.Type) bool {
	_, ok := a.reads[t]
	return ok
}

// WritesType reports whether t is in the declared write set.
func (a *AccessSet) WritesType(t reflect.Type) bool {
	_, ok := a.writes[t]
	return ok
}

// canRead covers both sets: a declared writer may also read its resource.
func (a *AccessSet) canRead(t reflect.Type) bool {
	return a.ReadsType(t) || a.WritesType(t)
}

// ReadTypes returns the declared read set sorted by type name.
func (a *AccessSet) ReadTypes() []reflect.Type {
	return sortedTypes(a.reads)
}

// WriteTypes returns the declared write set sorted by type name.
func (a *AccessSet) WriteTypes() []reflect.Type {
	return sortedTypes(a.writes)
}

// all returns every type the set touches, sorted by type name.
func (a *AccessSet) all() []reflect.Type {
	union := make(map[reflect.Type]struct{}, len(a.reads)+len(a.writes))
	for t := range a.reads {
		union[t] = struct{}{}
	}
	for t := range a.writes {
		union[t] = struct{}{}
	}
	return sortedTypes(union)
}

// Clone returns an independent copy of the set.
func (a *AccessSet) Clone() *AccessSet {
	c := NewAccessSet()
	for t := range a.reads {
		c.reads[t] = struct{}{}
	}
	for t := range a.writes {
		c.writes[t] = struct{}{}
	}
	return c
}

// ConflictsWith reports whether two sets cannot execute concurrently, which
// is the case when either set writes a type the other reads or writes.
func (a *AccessSet) ConflictsWith(b *AccessSet) bool {
	for t := range a.writes {
		if b.canRead(t) {
			return true
		}
	}
	for t := range b.writes {
		if a.canRead(t) {
			return true
		}
	}
	return false
}

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

func sortedTypes(set map[reflect.Type]struct{}) []reflect.Type {
	types := make([]reflect.Type, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))
	return types
}
