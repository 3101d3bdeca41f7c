// Package mapping holds per-type class mappings between Go types and
// directory schema (spec §3, §4.7). In the source system this is built by
// reflecting over attribute annotations at runtime; in Go there is no
// equivalent reflection-over-attributes step, so a ClassMap is built once,
// explicitly, through Builder and published into a Registry (spec §9,
// "host reflection → explicit registration").
package mapping

import (
	"fmt"

	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping/convert"
)

// ReadOnly controls when a PropertyMap is excluded from a modification list
// (spec §3 PropertyMap.read_only).
type ReadOnly int

const (
	ReadOnlyNever ReadOnly = iota
	ReadOnlyOnAdd
	ReadOnlyOnUpdate
	ReadOnlyAlways
)

// PropertyMap binds one mapped Go struct field to one LDAP attribute.
//
// Get/Set operate on `any` rather than a generic T so a ClassMap can hold a
// homogeneous slice of PropertyMap regardless of which field type each one
// addresses; ClassMap[T]'s own generic parameter supplies type safety at the
// registry boundary instead.
type PropertyMap struct {
	// AttributeName is the LDAP attribute name.
	AttributeName string
	// Get reads the current value of the property from an instance.
	Get func(instance any) any
	// Set writes a converted value into the property of an instance.
	Set func(instance any, value any) error
	// Converter performs the bidirectional raw-value <-> typed-value conversion.
	Converter convert.Converter
	ReadOnly  ReadOnly
	// IsDistinguishedName marks the (at most one) DN property; such a
	// property is always read-only on update regardless of ReadOnly.
	IsDistinguishedName bool
	// Binary marks attributes whose values must always be hex-escaped byte
	// for byte when translated into a filter (spec §4.1 binary escaping).
	Binary bool
	// Multivalued marks attributes that can carry more than one value, so
	// the change tracker computes a set difference instead of a Replace.
	Multivalued bool
}

// ObjectClassTerm is one (value, include-in-filter) pair for objectClass or
// objectCategory gating (spec §3 ClassMap.object_classes/object_category).
type ObjectClassTerm struct {
	Value   string
	Include bool
}

// ClassMap is the immutable-after-build mapping for one Go type T (spec §3).
type ClassMap[T any] struct {
	NamingContext             string
	ObjectClasses             []ObjectClassTerm
	ObjectCategory            *ObjectClassTerm
	WithoutSubTypeMapping     bool
	DistinguishedNameProperty string // attribute name, defaults to "distinguishedName"

	// Properties preserves declaration order; the select projector and
	// identity-projection test scenario in spec §8 depend on this order
	// being exactly the order properties were registered in.
	order      []string
	Properties map[string]*PropertyMap

	// CatchAll, if set, receives every attribute not otherwise mapped. The
	// target must accept a full DirectoryAttributes-shaped bag.
	CatchAll func(instance any, attrs map[string][]string)

	// SubTypeMappings maps an additional objectClass discriminator onto a
	// more specific set of properties layered on top of this one.
	SubTypeMappings map[string]*ClassMap[T]

	// New constructs a zero-value *T (or T, for value materialisation) for
	// the materialiser to populate.
	New func() T
}

// OrderedPropertyNames returns property names in registration order.
func (c *ClassMap[T]) OrderedPropertyNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)

	return out
}

// Builder constructs a ClassMap[T] incrementally. It is the Go stand-in for
// the source system's reflection-driven DirectorySchema/DirectoryAttribute
// scan (spec §4.7 steps 1-5): each step below corresponds to one of those,
// performed by explicit calls instead of annotation discovery.
type Builder[T any] struct {
	cm  *ClassMap[T]
	err error
}

// NewBuilder starts building a ClassMap[T], step 1-2 of spec §4.7 (locate
// schema annotation / read naming context & object classes) made explicit.
func NewBuilder[T any](namingContext string, newFn func() T) *Builder[T] {
	return &Builder[T]{
		cm: &ClassMap[T]{
			NamingContext:             namingContext,
			DistinguishedNameProperty: "distinguishedName",
			Properties:                make(map[string]*PropertyMap),
			New:                       newFn,
		},
	}
}

// ObjectClass registers one objectClass term, optionally included in
// emitted filters.
func (b *Builder[T]) ObjectClass(value string, includeInFilter bool) *Builder[T] {
	b.cm.ObjectClasses = append(b.cm.ObjectClasses, ObjectClassTerm{Value: value, Include: includeInFilter})

	return b
}

// ObjectCategory sets the (optional) objectCategory term.
func (b *Builder[T]) ObjectCategory(value string, includeInFilter bool) *Builder[T] {
	b.cm.ObjectCategory = &ObjectClassTerm{Value: value, Include: includeInFilter}

	return b
}

// WithoutSubTypeMapping disables sub-type objectClass discrimination.
func (b *Builder[T]) WithoutSubTypeMapping() *Builder[T] {
	b.cm.WithoutSubTypeMapping = true

	return b
}

// DistinguishedName registers the DN property (spec §4.7 step 4). The DN
// property is always string-typed and read-only on update (spec §3
// invariant); the change tracker and the add path also skip any property
// flagged IsDistinguishedName, whatever its ReadOnly value.
func (b *Builder[T]) DistinguishedName(attributeName string, get func(T) string, set func(*T, string)) *Builder[T] {
	b.cm.DistinguishedNameProperty = attributeName
	b.cm.Properties[attributeName] = &PropertyMap{
		AttributeName:       attributeName,
		IsDistinguishedName: true,
		ReadOnly:            ReadOnlyOnUpdate,
		Converter:           convert.String(),
		Get: func(instance any) any {
			return get(*instance.(*T))
		},
		Set: func(instance any, value any) error {
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("dn property must be a string, got %T", value)
			}

			set(instance.(*T), s)

			return nil
		},
	}
	b.cm.order = append(b.cm.order, attributeName)

	return b
}

// Property registers one mapped property (spec §4.7 step 3, with the
// override dictionary folded into the caller passing attributeName
// directly rather than the struct's own default).
func (b *Builder[T]) Property(
	attributeName string,
	converter convert.Converter,
	get func(T) any,
	set func(*T, any) error,
	opts ...PropertyOption,
) *Builder[T] {
	if attributeName == "" {
		b.err = ldaperr.Mapping("property maps to an empty attribute name")

		return b
	}

	pm := &PropertyMap{
		AttributeName: attributeName,
		Converter:     converter,
		Get: func(instance any) any {
			return get(*instance.(*T))
		},
		Set: func(instance any, value any) error {
			return set(instance.(*T), value)
		},
	}

	for _, opt := range opts {
		opt(pm)
	}

	b.cm.Properties[attributeName] = pm
	b.cm.order = append(b.cm.order, attributeName)

	return b
}

// PropertyOption configures optional PropertyMap fields.
type PropertyOption func(*PropertyMap)

// ReadOnlyWhen sets when a property is excluded from the change tracker's diff.
func ReadOnlyWhen(r ReadOnly) PropertyOption { return func(p *PropertyMap) { p.ReadOnly = r } }

// AsBinary marks a property as binary for filter-escaping purposes.
func AsBinary() PropertyOption { return func(p *PropertyMap) { p.Binary = true } }

// AsMultivalued marks a property as carrying more than one value.
func AsMultivalued() PropertyOption { return func(p *PropertyMap) { p.Multivalued = true } }

// CatchAll registers the (at most one) property that receives every
// attribute not otherwise mapped (spec §4.7 step 5).
func (b *Builder[T]) CatchAll(set func(instance any, attrs map[string][]string)) *Builder[T] {
	b.cm.CatchAll = set

	return b
}

// SubType adds a more-specific ClassMap layered on top of this one, keyed
// by the discriminating objectClass value.
func (b *Builder[T]) SubType(objectClass string, cm *ClassMap[T]) *Builder[T] {
	if b.cm.SubTypeMappings == nil {
		b.cm.SubTypeMappings = make(map[string]*ClassMap[T])
	}

	b.cm.SubTypeMappings[objectClass] = cm

	return b
}

// Build validates and returns the finished, immutable ClassMap[T].
func (b *Builder[T]) Build() (*ClassMap[T], error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.cm.ObjectClasses) == 0 && b.cm.ObjectCategory == nil {
		return nil, ldaperr.Mapping("class map has no objectClass or objectCategory term")
	}

	for attr, pm := range b.cm.Properties {
		if pm.AttributeName == "" {
			return nil, ldaperr.Mapping("property registered under attribute %q has an empty attribute name", attr)
		}
	}

	return b.cm, nil
}
