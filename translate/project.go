package translate

import (
	"github.com/sgnl-ai/ldapquery/expr"
	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/mapping/convert"
)

// ProjectionKind identifies the shape a Select() lambda produces (spec §4.2).
type ProjectionKind int

const (
	// ProjectionIdentity is Select(t => t): every mapped attribute is
	// requested and the materialiser reconstructs a full T.
	ProjectionIdentity ProjectionKind = iota
	// ProjectionSingleMember is Select(t => t.P1): only P1's attribute is
	// requested and the result is t.P1's value type, not a wrapper.
	ProjectionSingleMember
	// ProjectionAnonymous is Select(t => new { A = t.P1, B = t.P2, ... }):
	// the named members' attributes are requested and the result carries
	// each member under its declared name, in declaration order.
	ProjectionAnonymous
)

// ProjectedMember is one named slot of an anonymous-aggregate projection.
// AttributeName/Converter are set when the member is a bare property
// reference (t.P1); for a member built from a larger host expression
// (t.P1.ToUpper(), a conditional, ...) they're left zero and Expr carries
// the full expression for the host side to evaluate once the properties it
// depends on have been loaded.
type ProjectedMember struct {
	Name          string
	AttributeName string
	Converter     convert.Converter
	Expr          *expr.Node
}

// Projection is the result of translating a Select() lambda body.
type Projection struct {
	Kind ProjectionKind

	// Attributes is the full, order-preserving list of LDAP attribute names
	// the search request must ask the server for.
	Attributes []string

	// SingleMember is set when Kind == ProjectionSingleMember.
	SingleMember *ProjectedMember

	// Members is set when Kind == ProjectionAnonymous, in declaration order
	// (spec §4.2 "anonymous aggregate ... preserves host insertion order").
	Members []ProjectedMember
}

// TranslateProjection lowers a Select() lambda body into a Projection,
// against the property set exposed by lookup.
func TranslateProjection(body *expr.Node, lookup propertyLookup, orderedAttrs []string) (Projection, error) {
	if body == nil {
		return Projection{Kind: ProjectionIdentity, Attributes: orderedAttrs}, nil
	}

	switch body.Kind {
	case expr.KindParameter:
		// Select(t => t): identity projection, every mapped attribute.
		return Projection{Kind: ProjectionIdentity, Attributes: orderedAttrs}, nil

	case expr.KindMember:
		return translateSingleMemberProjection(body, lookup)

	case expr.KindNew, expr.KindAnonymous:
		return translateAnonymousProjection(body, lookup)

	default:
		return Projection{}, ldaperr.Translation("unsupported projection shape: node kind %d", body.Kind)
	}
}

func translateSingleMemberProjection(body *expr.Node, lookup propertyLookup) (Projection, error) {
	if len(body.Path) != 1 {
		return Projection{}, ldaperr.Translation("unsupported projection: member path %q is not a direct property reference", body.MemberPath())
	}

	name := body.Path[0]

	pm, ok := lookup(name)
	if !ok {
		return Projection{}, ldaperr.Mapping("property %q is not mapped", name)
	}

	member := ProjectedMember{Name: name, AttributeName: pm.AttributeName, Converter: pm.Converter, Expr: body}

	return Projection{
		Kind:         ProjectionSingleMember,
		Attributes:   []string{pm.AttributeName},
		SingleMember: &member,
	}, nil
}

func translateAnonymousProjection(body *expr.Node, lookup propertyLookup) (Projection, error) {
	members := make([]ProjectedMember, 0, len(body.Members))
	attrs := make([]string, 0, len(body.Members))
	seenAttr := make(map[string]struct{}, len(body.Members))

	for _, m := range body.Members {
		if m.Expr == nil {
			return Projection{}, ldaperr.Translation("unsupported projection: member %q has no expression", m.Name)
		}

		if m.Expr.Kind == expr.KindMember && len(m.Expr.Path) == 1 {
			propName := m.Expr.Path[0]

			pm, ok := lookup(propName)
			if !ok {
				return Projection{}, ldaperr.Mapping("property %q is not mapped", propName)
			}

			members = append(members, ProjectedMember{Name: m.Name, AttributeName: pm.AttributeName, Converter: pm.Converter, Expr: m.Expr})

			if _, dup := seenAttr[pm.AttributeName]; !dup {
				seenAttr[pm.AttributeName] = struct{}{}
				attrs = append(attrs, pm.AttributeName)
			}

			continue
		}

		// The member is built from a larger host expression (a method call,
		// an operator, a conditional, ...) rather than a bare property
		// reference. The expression itself is evaluated host-side once the
		// entry is materialised; translation's job here is only to make
		// sure every property it reads is requested from the server.
		paths := expr.CollectMemberPaths(m.Expr)

		for _, path := range paths {
			if len(path) != 1 {
				return Projection{}, ldaperr.Translation("unsupported projection: member %q references nested path %q", m.Name, joinPath(path))
			}

			pm, ok := lookup(path[0])
			if !ok {
				return Projection{}, ldaperr.Mapping("property %q is not mapped", path[0])
			}

			if _, dup := seenAttr[pm.AttributeName]; dup {
				continue
			}

			seenAttr[pm.AttributeName] = struct{}{}
			attrs = append(attrs, pm.AttributeName)
		}

		members = append(members, ProjectedMember{Name: m.Name, Expr: m.Expr})
	}

	return Projection{Kind: ProjectionAnonymous, Attributes: attrs, Members: members}, nil
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}

	return out
}

// TranslateProjectionFor is the ClassMap[T]-bound convenience wrapper.
func TranslateProjectionFor[T any](body *expr.Node, cm *mapping.ClassMap[T]) (Projection, error) {
	lookup := func(name string) (*mapping.PropertyMap, bool) {
		pm, ok := cm.Properties[name]

		return pm, ok
	}

	var attrs []string
	for _, name := range cm.OrderedPropertyNames() {
		attrs = append(attrs, cm.Properties[name].AttributeName)
	}

	return TranslateProjection(body, lookup, attrs)
}
