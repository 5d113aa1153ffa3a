package sched

import (
	"fmt"
	"reflect"
	"sync"
)

// Tick is the execution context handed to a system once per dispatch round.
// It carries the round's delta time and an access-checked view into the
// resource table, restricted to the executing system's declared set.
type Tick struct {
	DeltaTime float64

	resources *Resources
	access    *AccessSet
	deferred  *deferQueue
}

func newTick(dt float64, resources *Resources, deferred *deferQueue, access *AccessSet) *Tick {
	return &Tick{
		DeltaTime: dt,
		resources: resources,
		access:    access,
		deferred:  deferred,
	}
}

// restrict returns a view of the same tick limited to the given access set.
func (t *Tick) restrict(access *AccessSet) *Tick {
	return &Tick{
		DeltaTime: t.DeltaTime,
		resources: t.resources,
		access:    access,
		deferred:  t.deferred,
	}
}

// Defer queues fn to run after every system in the current tick has finished.
// Deferred functions run serially in queue order and may mutate the resource
// table; use this for structural changes that must not race a parallel batch.
func (t *Tick) Defer(fn func()) {
	t.deferred.push(fn)
}

// Shared returns the current value of the resource of type T. The executing
// system must have declared a read (or write) of T; requesting an undeclared
// type is a programming error and panics.
func Shared[T any](t *Tick) T {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if !t.access.canRead(rt) {
		panic(fmt.Sprintf("sched: undeclared read of resource %s", rt))
	}
	return *(*T)(t.entry(rt).dataPtr)
}

// Exclusive returns a mutable pointer to the resource of type T. The
// executing system must have declared a write of T; requesting an undeclared
// type is a programming error and panics.
func Exclusive[T any](t *Tick) *T {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if !t.access.WritesType(rt) {
		panic(fmt.Sprintf("sched: undeclared write of resource %s", rt))
	}
	return (*T)(t.entry(rt).dataPtr)
}

func (t *Tick) entry(rt reflect.Type) *resourceEntry {
	entry := t.resources.getEntry(rt)
	if entry == nil {
		// Build installs defaults for every declared type, so a missing
		// entry means the tick was constructed outside a dispatcher.
		panic(fmt.Sprintf("sched: resource %s was never installed", rt))
	}
	return entry
}

// deferQueue collects functions to run serially after all batches of the
// current tick have completed.
type deferQueue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *deferQueue) push(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

// flush runs without the lock: it is only called after every batch goroutine
// of the tick has joined.
func (q *deferQueue) flush() {
	for _, fn := range q.fns {
		fn()
	}
	q.fns = q.fns[:0]
}
