package sched

import (
	"reflect"
	"sort"
	"sync"
	"unsafe"

	"github.com/kamstrup/intmap"
)

// iface represents the internal memory layout of an interface{}.
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// typeId returns a process-unique integer identity for a type, derived from
// the runtime's type descriptor pointer.
func typeId(t reflect.Type) int {
	ptr := (*iface)(unsafe.Pointer(&t)).data
	return int(uintptr(ptr))
}

// resourceEntry boxes one stored value. dataPtr points at the value itself,
// so typed accessors can hand out *T without further allocation.
type resourceEntry struct {
	typ     reflect.Type
	dataPtr unsafe.Pointer
	boxed   any // keeps the value reachable
}

// Resources is a table mapping a resource type to a single boxed value of
// that type. Resources are installed before the first tick (by the
// application or by the dispatcher's default installation during Build) and
// accessed during ticks through each system's declared-access view.
//
// The table lock guards installation only. Value access during a tick is
// lock-free because the dispatcher never runs two systems concurrently when
// one of them writes a resource the other touches.
type Resources struct {
	mu      sync.RWMutex
	entries *intmap.Map[int, *resourceEntry]
	types   []reflect.Type
}

// NewResources creates an empty resource table.
func NewResources() *Resources {
	return &Resources{
		entries: intmap.New[int, *resourceEntry](16),
	}
}

// AddResource installs the resource of type T. If a resource of that type
// already exists its value is assigned in place, so views handed out earlier
// observe the new value.
func AddResource[T any](r *Resources, value T) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries.Get(typeId(t)); ok {
		*(*T)(entry.dataPtr) = value
		return
	}

	boxed := &value
	r.put(t, &resourceEntry{
		typ:     t,
		dataPtr: unsafe.Pointer(boxed),
		boxed:   boxed,
	})
}

// ResourceRef returns a pointer to the stored resource of type T, or nil if
// it has not been installed. It is intended for application code running
// between ticks; systems use Shared and Exclusive on their Tick instead.
func ResourceRef[T any](r *Resources) *T {
	entry := r.getEntry(reflect.TypeOf((*T)(nil)).Elem())
	if entry == nil {
		return nil
	}
	return (*T)(entry.dataPtr)
}

// HasResource reports whether a resource of type T has been installed.
func HasResource[T any](r *Resources) bool {
	return r.Has(reflect.TypeOf((*T)(nil)).Elem())
}

// Has reports whether a resource of the given type has been installed.
func (r *Resources) Has(t reflect.Type) bool {
	return r.getEntry(t) != nil
}

// Len returns the number of installed resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Types returns the installed resource types sorted by name.
func (r *Resources) Types() []reflect.Type {
	r.mu.RLock()
	types := make([]reflect.Type, len(r.types))
	copy(types, r.types)
	r.mu.RUnlock()

	sort.Sort(byTypeName(types))
	return types
}

// ensureDefault installs the zero value for t if no resource of that type
// exists yet. The dispatcher calls this for every declared type during
// Build, so a declared resource always exists before the first tick.
func (r *Resources) ensureDefault(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries.Get(typeId(t)); ok {
		return
	}

	boxed := reflect.New(t)
	r.put(t, &resourceEntry{
		typ:     t,
		dataPtr: boxed.UnsafePointer(),
		boxed:   boxed.Interface(),
	})
}

func (r *Resources) getEntry(t reflect.Type) *resourceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, _ := r.entries.Get(typeId(t))
	return entry
}

// put stores an entry; callers must hold the write lock.
func (r *Resources) put(t reflect.Type, entry *resourceEntry) {
	r.entries.Put(typeId(t), entry)
	r.types = append(r.types, t)
}
