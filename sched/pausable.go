package sched

import "reflect"

// Pausable wraps a system so it only executes while the control resource of
// type V equals the guard value.
//
// The wrapper's declared access set is the wrapped system's set plus a
// shared read of V. That keeps the dispatcher's conflict analysis sound
// without it ever executing anything: the wrapped write set stays declared
// even though a gated tick skips the writes. On a tick where the control
// value differs from the guard, Execute returns immediately and no resource
// beyond the control read is touched. On equality it forwards to the wrapped
// system with a view restricted to that system's own declared set. Errors
// from the wrapped system propagate unchanged and its cost hint is forwarded
// as-is.
//
// The wrapper never installs or writes the control resource; Build installs
// the type's zero value before the first tick. Several wrappers may share
// one control type with different guards. They are mutually exclusive in
// effect only if the application keeps the control value at a single guard
// at a time; the wrapper does not enforce that.
func Pausable[V comparable](system System, guard V) System {
	return &pausable[V]{
		system: system,
		guard:  guard,
		inner:  system.Accesses(),
	}
}

type pausable[V comparable] struct {
	system System
	guard  V
	inner  *AccessSet // the wrapped system's own declared set
}

func (p *pausable[V]) Accesses() *AccessSet {
	access := p.inner.Clone()
	access.AddRead(reflect.TypeOf((*V)(nil)).Elem())
	return access
}

func (p *pausable[V]) Execute(tick *Tick) error {
	if Shared[V](tick) != p.guard {
		return nil
	}
	return p.system.Execute(tick.restrict(p.inner))
}

func (p *pausable[V]) Cost() Cost {
	return CostOf(p.system)
}
