// Package querybuilder implements the fluent query DSL and the multi-pass
// translator that lowers a built query into a QueryPlan ready for the
// command package to execute (spec §4.3, §4.4).
package querybuilder

import (
	"github.com/sgnl-ai/ldapquery/expr"
	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/translate"
)

// Query[T] accumulates pipeline operators against a root parameter, the Go
// stand-in for a host LINQ-style query expression tree (spec §4.3). Building
// a query never touches the directory; Plan lowers it once, eagerly.
type Query[T any] struct {
	param string
	ops   []expr.Operator
}

// New starts a query over T using param as the lambda root variable name
// (used only for readable MemberPath error messages).
func New[T any](param string) *Query[T] {
	return &Query[T]{param: param}
}

func (q *Query[T]) clone() *Query[T] {
	out := &Query[T]{param: q.param, ops: make([]expr.Operator, len(q.ops))}
	copy(out.ops, q.ops)

	return out
}

func (q *Query[T]) push(op expr.Operator) *Query[T] {
	next := q.clone()
	next.ops = append(next.ops, op)

	return next
}

// param returns the KindParameter root node for building predicates.
func (q *Query[T]) Param() *expr.Node { return expr.Parameter(q.param) }

// Where adds a predicate; repeated Where calls are ANDed together (spec §4.3).
func (q *Query[T]) Where(predicate *expr.Node) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpWhere, Predicate: predicate})
}

// OrderBy / OrderByDescending / ThenBy / ThenByDescending name the mapped
// property the sort applies to, in call order (spec §4.3 ordering).
func (q *Query[T]) OrderBy(member string) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpOrderBy, Member: member})
}

func (q *Query[T]) OrderByDescending(member string) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpOrderByDescending, Member: member})
}

func (q *Query[T]) ThenBy(member string) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpThenBy, Member: member})
}

func (q *Query[T]) ThenByDescending(member string) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpThenByDescending, Member: member})
}

// Skip / Take set a caller-side offset/limit (spec §4.3 skip/take).
func (q *Query[T]) Skip(n int) *Query[T] { return q.push(expr.Operator{Kind: expr.OpSkip, Count: n}) }
func (q *Query[T]) Take(n int) *Query[T] { return q.push(expr.Operator{Kind: expr.OpTake, Count: n}) }

// Page requests server-side paged retrieval with the given page size.
func (q *Query[T]) Page(size int) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpPage, Count: size})
}

// VirtualListView requests a VLV window (spec §4.3/§4.6).
func (q *Query[T]) VirtualListView(targetOffset, beforeCount, afterCount, contentCount int, contextID []byte) *Query[T] {
	return q.push(expr.Operator{
		Kind:            expr.OpVirtualListView,
		Count:           beforeCount,
		VLVTargetOffset: targetOffset,
		VLVAfterCount:   afterCount,
		VLVContentCount: contentCount,
		VLVContextID:    contextID,
	})
}

// WithoutPaging disables automatic paging-control attachment.
func (q *Query[T]) WithoutPaging() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpWithoutPaging})
}

// WithinSizeLimit tolerates a server size-limit result instead of erroring
// (spec §4.4 within_size_limit).
func (q *Query[T]) WithinSizeLimit() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpWithinSizeLimit})
}

// IncludeControls attaches caller-supplied request controls verbatim.
func (q *Query[T]) IncludeControls(controls ...any) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpIncludeControls, Controls: controls})
}

// AsNoTracking disables change tracking on materialised results.
func (q *Query[T]) AsNoTracking() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpAsNoTracking})
}

// InNamingContext overrides the search base for this query.
func (q *Query[T]) InNamingContext(nc string) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpInNamingContext, NamingContext: nc})
}

// InSubtree widens scope from one-level to whole-subtree.
func (q *Query[T]) InSubtree() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpInSubtree})
}

// AsDynamic marks results as host-schema-free (spec §4.7 dynamic entries);
// dynamic results are always change-tracked regardless of AsNoTracking, per
// the Open Question resolution in the design notes.
func (q *Query[T]) AsDynamic() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpAsDynamic})
}

// Select sets the projection; body is the lambda body against Param().
func (q *Query[T]) Select(body *expr.Node) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpSelect, Projection: body})
}

// terminal operator kinds, at most one of which may appear (spec §4.4
// "closed command-variant set").
func (q *Query[T]) First() *Query[T]       { return q.push(expr.Operator{Kind: expr.OpFirst}) }
func (q *Query[T]) FirstOrDefault() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpFirstOrDefault})
}
func (q *Query[T]) Single() *Query[T] { return q.push(expr.Operator{Kind: expr.OpSingle}) }
func (q *Query[T]) SingleOrDefault() *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpSingleOrDefault})
}
func (q *Query[T]) Last() *Query[T] { return q.push(expr.Operator{Kind: expr.OpLast}) }
func (q *Query[T]) Count() *Query[T] { return q.push(expr.Operator{Kind: expr.OpCount}) }
func (q *Query[T]) LongCount() *Query[T] { return q.push(expr.Operator{Kind: expr.OpLongCount}) }

// Any adds an existence-check terminal; when predicate is non-nil it is
// ANDed into the filter as an additional Where would be (spec §4.3 any/all
// rewrite onto the existing predicate set).
func (q *Query[T]) Any(predicate *expr.Node) *Query[T] {
	return q.push(expr.Operator{Kind: expr.OpAny, Predicate: predicate})
}

// All rewrites to a negated Any: !Any(!predicate) (spec §4.3).
func (q *Query[T]) All(predicate *expr.Node) *Query[T] {
	negated := predicate
	if predicate != nil {
		negated = expr.Unary("!", predicate)
	}

	return q.push(expr.Operator{Kind: expr.OpAll, Predicate: negated})
}

// Terminal identifies which terminal operator, if any, closes the query.
type Terminal int

const (
	TerminalEnumerate Terminal = iota
	TerminalFirst
	TerminalFirstOrDefault
	TerminalSingle
	TerminalSingleOrDefault
	TerminalLast
	TerminalCount
	TerminalLongCount
	TerminalAny
	TerminalAll
)

// SortKey is one ORDER BY term resolved against the mapped attribute name.
type SortKey struct {
	AttributeName string
	Descending    bool
}

// PagingMode selects how server-side paging is driven (spec §4.6).
type PagingMode int

const (
	PagingNone PagingMode = iota
	PagingCookie
	PagingVLV
)

// VLVWindow carries the resolved VLV parameters (spec §4.6).
type VLVWindow struct {
	TargetOffset int
	BeforeCount  int
	AfterCount   int
	ContentCount int
	ContextID    []byte
}

// Plan is the fully resolved, order-independent result of the multi-pass
// translation over a Query[T] (spec §4.4 steps 1-7, minus the directory-side
// preflight steps which belong to package command).
type Plan struct {
	Filter          string
	YieldNoResults  bool
	Sort            []SortKey
	Skip            int
	Take            int
	HasTake         bool
	Paging          PagingMode
	PageSize        int
	VLV             VLVWindow
	WithoutPaging   bool
	WithinSizeLimit bool
	Controls        []any
	NamingContext   string
	InSubtree       bool
	NoTracking      bool
	Dynamic         bool
	Projection      translate.Projection
	HasProjection   bool
	Terminal        Terminal
}

// BuildPlan lowers q against cm into a Plan, implementing the multi-pass
// algorithm of spec §4.3/§4.4: extract-and-fold predicates, extract
// ordering, resolve skip/take/page/vlv precedence, extract controls,
// extract projection, and pick the terminal/result transformer.
func BuildPlan[T any](q *Query[T], cm *mapping.ClassMap[T]) (*Plan, error) {
	lookup := func(name string) (*mapping.PropertyMap, bool) {
		pm, ok := cm.Properties[name]

		return pm, ok
	}

	plan := &Plan{NamingContext: cm.NamingContext}

	var predicate *expr.Node

	and := func(p *expr.Node) {
		if p == nil {
			return
		}

		if predicate == nil {
			predicate = p

			return
		}

		predicate = expr.Binary("&&", predicate, p)
	}

	hasExplicitTake := false

	for _, op := range q.ops {
		switch op.Kind {
		case expr.OpWhere:
			and(op.Predicate)

		case expr.OpAny:
			and(op.Predicate)
			plan.Terminal = TerminalAny

		case expr.OpAll:
			and(op.Predicate)
			plan.Terminal = TerminalAll

		case expr.OpOrderBy:
			pm, ok := lookup(op.Member)
			if !ok {
				return nil, ldaperr.Mapping("property %q is not mapped", op.Member)
			}

			plan.Sort = []SortKey{{AttributeName: pm.AttributeName}}

		case expr.OpOrderByDescending:
			pm, ok := lookup(op.Member)
			if !ok {
				return nil, ldaperr.Mapping("property %q is not mapped", op.Member)
			}

			plan.Sort = []SortKey{{AttributeName: pm.AttributeName, Descending: true}}

		case expr.OpThenBy:
			pm, ok := lookup(op.Member)
			if !ok {
				return nil, ldaperr.Mapping("property %q is not mapped", op.Member)
			}

			plan.Sort = append(plan.Sort, SortKey{AttributeName: pm.AttributeName})

		case expr.OpThenByDescending:
			pm, ok := lookup(op.Member)
			if !ok {
				return nil, ldaperr.Mapping("property %q is not mapped", op.Member)
			}

			plan.Sort = append(plan.Sort, SortKey{AttributeName: pm.AttributeName, Descending: true})

		case expr.OpSkip:
			plan.Skip = op.Count

		case expr.OpTake:
			plan.Take = op.Count
			plan.HasTake = true
			hasExplicitTake = true

		case expr.OpPage:
			if plan.Paging != PagingVLV {
				plan.Paging = PagingCookie
			}

			plan.PageSize = op.Count

		case expr.OpVirtualListView:
			plan.Paging = PagingVLV
			plan.VLV = VLVWindow{
				TargetOffset: op.VLVTargetOffset,
				BeforeCount:  op.Count,
				AfterCount:   op.VLVAfterCount,
				ContentCount: op.VLVContentCount,
				ContextID:    op.VLVContextID,
			}

		case expr.OpWithoutPaging:
			plan.WithoutPaging = true

		case expr.OpWithinSizeLimit:
			plan.WithinSizeLimit = true

		case expr.OpIncludeControls:
			plan.Controls = append(plan.Controls, op.Controls...)

		case expr.OpAsNoTracking:
			plan.NoTracking = true

		case expr.OpInNamingContext:
			plan.NamingContext = op.NamingContext

		case expr.OpInSubtree:
			plan.InSubtree = true

		case expr.OpAsDynamic:
			plan.Dynamic = true

		case expr.OpSelect:
			proj, err := translate.TranslateProjection(op.Projection, lookup, defaultAttributes(cm))
			if err != nil {
				return nil, err
			}

			plan.Projection = proj
			plan.HasProjection = true

		case expr.OpFirst:
			plan.Terminal = TerminalFirst
		case expr.OpFirstOrDefault:
			plan.Terminal = TerminalFirstOrDefault
		case expr.OpSingle:
			plan.Terminal = TerminalSingle
		case expr.OpSingleOrDefault:
			plan.Terminal = TerminalSingleOrDefault
		case expr.OpLast:
			plan.Terminal = TerminalLast
		case expr.OpCount:
			plan.Terminal = TerminalCount
		case expr.OpLongCount:
			plan.Terminal = TerminalLongCount
		}
	}

	// Dynamic results are always change-tracked, even under AsNoTracking.
	if plan.Dynamic {
		plan.NoTracking = false
	}

	// Resolve skip/take/page/vlv precedence (spec §4.6): an explicit VLV
	// window wins outright; otherwise an explicit Page(size) drives
	// server-side cookie paging, sized from Take (else 500) when no positive
	// page size was given; otherwise Skip/Take apply as plain caller-side
	// offset/limit with no server paging control.
	if plan.Paging == PagingVLV {
		// VLV already fully resolved above; Skip/Take are informational only.
	} else if plan.Paging == PagingCookie {
		if plan.PageSize <= 0 {
			if hasExplicitTake {
				plan.PageSize = plan.Take
			} else {
				plan.PageSize = defaultPageSize
			}
		}
	}

	res, err := translate.TranslateFilter(predicate, lookup)
	if err != nil {
		return nil, err
	}

	plan.Filter = res.Filter
	plan.YieldNoResults = res.YieldNoResults

	return plan, nil
}

const defaultPageSize = 500

func defaultAttributes[T any](cm *mapping.ClassMap[T]) []string {
	names := cm.OrderedPropertyNames()
	attrs := make([]string, 0, len(names))

	for _, name := range names {
		attrs = append(attrs, cm.Properties[name].AttributeName)
	}

	return attrs
}
