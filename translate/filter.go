// Package translate implements the two passes that turn an expr.Node
// subtree into LDAP search parameters: the filter translator (spec §4.1)
// and the select projector (spec §4.2).
package translate

import (
	"fmt"
	"strings"

	"github.com/sgnl-ai/ldapquery/expr"
	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping"
)

// bitwiseAndMatchOID / bitwiseOrMatchOID are the AD extensible-match rule
// OIDs used for bitwise mask predicates (spec §4.1).
const (
	bitwiseAndMatchOID = "1.2.840.113556.1.4.803"
	bitwiseOrMatchOID  = "1.2.840.113556.1.4.804"
)

// propertyLookup resolves a single flat member-path segment to its
// PropertyMap. The translator only supports direct `t.P` references (the
// predicate table of spec §4.1); deeper paths are an unsupported predicate.
type propertyLookup func(name string) (*mapping.PropertyMap, bool)

// FilterResult is the output of the filter translator.
type FilterResult struct {
	// Filter is the RFC 4515 filter string, valid only if !YieldNoResults.
	Filter string
	// YieldNoResults is set when the predicate is statically false (spec §4.1).
	YieldNoResults bool
}

// TranslateFilter lowers a boolean predicate subtree rooted at node into an
// RFC 4515 filter string, or sets YieldNoResults if the predicate is
// statically false. lookup resolves member-path segments to PropertyMaps.
func TranslateFilter(node *expr.Node, lookup propertyLookup) (FilterResult, error) {
	if node == nil {
		return FilterResult{Filter: ""}, nil
	}

	folded, isFalse, isTrue := foldConstants(node)
	if isFalse {
		return FilterResult{YieldNoResults: true}, nil
	}

	if isTrue {
		return FilterResult{Filter: ""}, nil
	}

	s, err := translateNode(folded, lookup)
	if err != nil {
		return FilterResult{}, err
	}

	return FilterResult{Filter: s}, nil
}

// TranslateFilterFor is a convenience wrapper that builds a propertyLookup
// from a mapping.ClassMap[T], so callers working against a concrete T don't
// need to build the closure themselves.
func TranslateFilterFor[T any](node *expr.Node, cm *mapping.ClassMap[T]) (FilterResult, error) {
	return TranslateFilter(node, func(name string) (*mapping.PropertyMap, bool) {
		pm, ok := cm.Properties[name]

		return pm, ok
	})
}

// foldConstants applies the constant-folding rules of spec §4.1:
// true && x -> x, false && x -> false, true || x -> true, !!x -> x. It
// returns the folded node plus whether the whole subtree is statically
// false or true.
func foldConstants(n *expr.Node) (folded *expr.Node, isFalse, isTrue bool) {
	switch n.Kind {
	case expr.KindConstant:
		b, ok := n.Value.(bool)
		if !ok {
			return n, false, false
		}

		return n, !b, b

	case expr.KindUnary:
		if n.Op != "!" {
			return n, false, false
		}

		inner, innerFalse, innerTrue := foldConstants(n.Operand)
		if innerTrue {
			return inner, true, false
		}

		if innerFalse {
			return inner, false, true
		}

		if inner.Kind == expr.KindUnary && inner.Op == "!" {
			// !!x -> x
			return foldConstants(inner.Operand)
		}

		return expr.Unary("!", inner), false, false

	case expr.KindBinary:
		switch n.Op {
		case "&&":
			left, leftFalse, leftTrue := foldConstants(n.Left)
			right, rightFalse, rightTrue := foldConstants(n.Right)

			if leftFalse || rightFalse {
				return nil, true, false
			}

			if leftTrue && rightTrue {
				return nil, false, true
			}

			if leftTrue {
				return right, rightFalse, rightTrue
			}

			if rightTrue {
				return left, leftFalse, leftTrue
			}

			return expr.Binary("&&", left, right), false, false

		case "||":
			left, leftFalse, leftTrue := foldConstants(n.Left)
			right, rightFalse, rightTrue := foldConstants(n.Right)

			if leftTrue || rightTrue {
				return nil, false, true
			}

			if leftFalse && rightFalse {
				return nil, true, false
			}

			if leftFalse {
				return right, rightFalse, rightTrue
			}

			if rightFalse {
				return left, leftFalse, leftTrue
			}

			return expr.Binary("||", left, right), false, false
		}
	}

	return n, false, false
}

func translateNode(n *expr.Node, lookup propertyLookup) (string, error) {
	switch n.Kind {
	case expr.KindBinary:
		return translateBinary(n, lookup)
	case expr.KindUnary:
		return translateUnary(n, lookup)
	case expr.KindCall:
		return translateCall(n, lookup)
	default:
		return "", ldaperr.Translation("unsupported predicate: node kind %d at %s", n.Kind, n.MemberPath())
	}
}

func translateUnary(n *expr.Node, lookup propertyLookup) (string, error) {
	if n.Op != "!" {
		return "", ldaperr.Translation("unsupported predicate: unary operator %q", n.Op)
	}

	inner, err := translateNode(n.Operand, lookup)
	if err != nil {
		return "", err
	}

	return "(!" + inner + ")", nil
}

func translateBinary(n *expr.Node, lookup propertyLookup) (string, error) {
	switch n.Op {
	case "&&", "||":
		left, err := translateNode(n.Left, lookup)
		if err != nil {
			return "", err
		}

		right, err := translateNode(n.Right, lookup)
		if err != nil {
			return "", err
		}

		combinator := "&"
		if n.Op == "||" {
			combinator = "|"
		}

		return fmt.Sprintf("(%s%s%s)", combinator, left, right), nil

	case "==", "!=", "<", "<=", ">", ">=":
		return translateComparison(n, lookup)

	default:
		return "", ldaperr.Translation("unsupported predicate: binary operator %q", n.Op)
	}
}

func translateComparison(n *expr.Node, lookup propertyLookup) (string, error) {
	member := n.Left
	if member.Kind != expr.KindMember {
		return "", ldaperr.Translation("unsupported predicate: left operand of %q is not a member access", n.Op)
	}

	attr, pm, err := resolveAttribute(member, lookup)
	if err != nil {
		return "", err
	}

	isNull := n.Right.Kind == expr.KindConstant && n.Right.Value == nil

	switch n.Op {
	case "==":
		if isNull {
			return fmt.Sprintf("(!(%s=*))", attr), nil
		}

		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s=%s)", attr, v), nil

	case "!=":
		if isNull {
			return fmt.Sprintf("(%s=*)", attr), nil
		}

		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(!(%s=%s))", attr, v), nil

	case ">=":
		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s>=%s)", attr, v), nil

	case ">":
		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(&(%s>=%s)(!(%s=%s)))", attr, v, attr, v), nil

	case "<=":
		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s<=%s)", attr, v), nil

	case "<":
		v, err := escapeOperand(pm, n.Right)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(&(%s<=%s)(!(%s=%s)))", attr, v, attr, v), nil

	default:
		return "", ldaperr.Translation("unsupported predicate: comparison operator %q", n.Op)
	}
}

func translateCall(n *expr.Node, lookup propertyLookup) (string, error) {
	// Static calls (no Target) handle string.IsNullOrEmpty(t.P).
	if n.Target == nil && n.Method == "IsNullOrEmpty" {
		if len(n.Args) != 1 {
			return "", ldaperr.Translation("IsNullOrEmpty expects exactly one argument")
		}

		attr, _, err := resolveAttribute(n.Args[0], lookup)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(!(%s=*))", attr), nil
	}

	if n.Target == nil || n.Target.Kind != expr.KindMember {
		return "", ldaperr.Translation("unsupported predicate: method %q has no member target", n.Method)
	}

	attr, pm, err := resolveAttribute(n.Target, lookup)
	if err != nil {
		return "", err
	}

	switch n.Method {
	case "StartsWith":
		s, err := stringArg(pm, n.Args, 0)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s=%s*)", attr, s), nil

	case "EndsWith":
		s, err := stringArg(pm, n.Args, 0)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s=*%s)", attr, s), nil

	case "Contains":
		s, err := stringArg(pm, n.Args, 0)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s=*%s*)", attr, s), nil

	case "Matches":
		if len(n.Args) != 1 {
			return "", ldaperr.Translation("Matches expects exactly one argument")
		}

		pattern, ok := n.Args[0].Value.(string)
		if !ok {
			return "", ldaperr.Translation("Matches argument must be a constant string")
		}

		return fmt.Sprintf("(%s=%s)", attr, escapeMatchPattern(pattern)), nil

	case "AnyOf":
		if len(n.Args) == 0 {
			return "", ldaperr.Translation("any_of requires at least one value")
		}

		var b strings.Builder

		b.WriteString("(|")

		for _, arg := range n.Args {
			v, err := escapeOperand(pm, arg)
			if err != nil {
				return "", err
			}

			fmt.Fprintf(&b, "(%s=%s)", attr, v)
		}

		b.WriteString(")")

		return b.String(), nil

	case "BitAnd":
		mask, err := intArg(n.Args, 0)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s:%s:=%d)", attr, bitwiseAndMatchOID, mask), nil

	case "BitOr":
		mask, err := intArg(n.Args, 0)
		if err != nil {
			return "", err
		}

		return fmt.Sprintf("(%s:%s:=%d)", attr, bitwiseOrMatchOID, mask), nil

	default:
		return "", ldaperr.Translation("unsupported predicate: method %q", n.Method)
	}
}

func resolveAttribute(member *expr.Node, lookup propertyLookup) (string, *mapping.PropertyMap, error) {
	if member.Kind != expr.KindMember || len(member.Path) != 1 {
		return "", nil, ldaperr.Translation("unsupported predicate: member path %q is not a direct property reference", member.MemberPath())
	}

	name := member.Path[0]

	pm, ok := lookup(name)
	if !ok {
		return "", nil, ldaperr.Mapping("property %q is not mapped", name)
	}

	return pm.AttributeName, pm, nil
}

func escapeOperand(pm *mapping.PropertyMap, operand *expr.Node) (string, error) {
	if operand.Kind != expr.KindConstant {
		return "", ldaperr.Translation("unsupported predicate: operand is not a constant")
	}

	s, err := pm.Converter.ToLDAP(operand.Value)
	if err != nil {
		return "", ldaperr.Translation("failed to convert operand for %s: %v", pm.AttributeName, err)
	}

	return EscapeFilterValue(s, pm.Binary), nil
}

func stringArg(pm *mapping.PropertyMap, args []*expr.Node, idx int) (string, error) {
	if idx >= len(args) {
		return "", ldaperr.Translation("missing argument %d", idx)
	}

	s, ok := args[idx].Value.(string)
	if !ok {
		return "", ldaperr.Translation("argument %d must be a constant string", idx)
	}

	return EscapeFilterValue(s, pm.Binary), nil
}

func intArg(args []*expr.Node, idx int) (int64, error) {
	if idx >= len(args) {
		return 0, ldaperr.Translation("missing argument %d", idx)
	}

	switch v := args[idx].Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, ldaperr.Translation("argument %d must be a constant integer", idx)
	}
}

// EscapeFilterValue escapes s per RFC 4515 §3. When binary is true, every
// byte is hex-escaped regardless of value, matching the wire form AD expects
// for binary-syntax attribute comparisons.
func EscapeFilterValue(s string, binary bool) string {
	if binary {
		var b strings.Builder

		for i := 0; i < len(s); i++ {
			fmt.Fprintf(&b, "\\%02x", s[i])
		}

		return b.String()
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\5c`)
		case '*':
			b.WriteString(`\2a`)
		case '(':
			b.WriteString(`\28`)
		case ')':
			b.WriteString(`\29`)
		case 0:
			b.WriteString(`\00`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// escapeMatchPattern escapes a Matches() raw filter-substring pattern,
// preserving '*' as a wildcard per spec §4.1 ("pattern taken as raw
// filter-substring content after escaping metacharacters other than *").
func escapeMatchPattern(pattern string) string {
	var b strings.Builder

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '\\':
			b.WriteString(`\5c`)
		case '(':
			b.WriteString(`\28`)
		case ')':
			b.WriteString(`\29`)
		case 0:
			b.WriteString(`\00`)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// UnescapeFilterValue reverses EscapeFilterValue, used by the escape
// invariance property test (spec §8 property 2).
func UnescapeFilterValue(s string) string {
	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+2 < len(s) {
			var v int

			if n, err := fmt.Sscanf(s[i+1:i+3], "%02x", &v); err == nil && n == 1 {
				b.WriteByte(byte(v))
				i += 2

				continue
			}
		}

		b.WriteByte(s[i])
	}

	return b.String()
}

// ObjectClassGate builds the `(objectClass=..)(objectCategory=..)..` terms
// for a ClassMap, per spec §4.1 "Object-class/category gating", as a bare
// concatenation; CombineFilter adds the outer `(&...)` wrapper.
func ObjectClassGate[T any](cm *mapping.ClassMap[T]) string {
	var terms []string

	for _, oc := range cm.ObjectClasses {
		if oc.Include {
			terms = append(terms, fmt.Sprintf("(objectClass=%s)", EscapeFilterValue(oc.Value, false)))
		}
	}

	if cm.ObjectCategory != nil && cm.ObjectCategory.Include {
		terms = append(terms, fmt.Sprintf("(objectCategory=%s)", EscapeFilterValue(cm.ObjectCategory.Value, false)))
	}

	for subclass := range cm.SubTypeMappings {
		terms = append(terms, fmt.Sprintf("(objectClass=%s)", EscapeFilterValue(subclass, false)))
	}

	return strings.Join(terms, "")
}

// CombineFilter ANDs the object-class gate with the translated predicate
// filter, omitting either side when empty.
func CombineFilter(gate, predicate string) string {
	switch {
	case gate == "" && predicate == "":
		return "(objectClass=*)"
	case gate == "":
		return predicate
	case predicate == "":
		if strings.HasPrefix(gate, "(&") || strings.Count(gate, "(") == 1 {
			return gate
		}

		return "(&" + gate + ")"
	default:
		return "(&" + gate + predicate + ")"
	}
}
