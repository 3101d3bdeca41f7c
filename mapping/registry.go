package mapping

import (
	"reflect"
	"sync"

	"github.com/sgnl-ai/ldapquery/ldaperr"
)

// Registry holds a keyed set of type->ClassMap bindings. Lookup uses Go
// type identity (reflect.Type) rather than a runtime Type handle from a
// managed runtime, per spec §9's "registry key-lookup uses type identity"
// note.
//
// Registry is read-mostly and internally synchronised with a RWMutex so
// readers never block readers (spec §5).
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]map[reflect.Type]any
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]map[reflect.Type]any)}
}

// Register publishes cm as the ClassMap for T under the default ("") key.
// Registration is write-once per type per registry key; a second call for
// the same (key, T) fails with KindMapping ("already_mapped").
func Register[T any](r *Registry, cm *ClassMap[T]) error {
	return RegisterKeyed[T](r, "", cm)
}

// RegisterKeyed is Register with an explicit registry key, supporting the
// "keyed set of registries" contract of spec §4.7 (default key "").
func RegisterKeyed[T any](r *Registry, key string, cm *ClassMap[T]) error {
	var zero T
	t := reflect.TypeOf(zero)

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.byKey[key]
	if !ok {
		bucket = make(map[reflect.Type]any)
		r.byKey[key] = bucket
	}

	if _, exists := bucket[t]; exists {
		return ldaperr.Mapping("type %s is already mapped under registry key %q", t, key)
	}

	bucket[t] = cm

	return nil
}

// Lookup returns the ClassMap[T] registered under the default key, or a
// KindMapping error if T was never registered.
func Lookup[T any](r *Registry) (*ClassMap[T], error) {
	return LookupKeyed[T](r, "")
}

// LookupKeyed is Lookup with an explicit registry key.
func LookupKeyed[T any](r *Registry, key string) (*ClassMap[T], error) {
	var zero T
	t := reflect.TypeOf(zero)

	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, ok := r.byKey[key]
	if !ok {
		return nil, ldaperr.Mapping("no class map registered under registry key %q", key)
	}

	cm, ok := bucket[t]
	if !ok {
		return nil, ldaperr.Mapping("type %s is not mapped under registry key %q", t, key)
	}

	return cm.(*ClassMap[T]), nil
}

// Keyed manages the set of named registries a DirectoryContext draws from
// and supports atomically swapping the active one (spec §4.7 ChangeMapper).
type Keyed struct {
	mu       sync.RWMutex
	active   string
	registry map[string]*Registry
}

// NewKeyed returns a Keyed set with a single default ("") registry active.
func NewKeyed() *Keyed {
	return &Keyed{registry: map[string]*Registry{"": NewRegistry()}}
}

// ChangeMapper atomically swaps the active registry to key, creating it
// first via factory if it does not yet exist.
func (k *Keyed) ChangeMapper(key string, factory func() *Registry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.registry[key]; !ok {
		k.registry[key] = factory()
	}

	k.active = key
}

// Active returns the currently active Registry.
func (k *Keyed) Active() *Registry {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.registry[k.active]
}
