// Package expr defines the small, self-contained expression AST that stands
// in for a host-language expression tree (spec §6, §9 "Expression trees").
// There is no reflection over a host type system here: a query is built by
// composing Node values directly or through the fluent builder in
// package querybuilder, and every translator pass in package translate
// walks this same node set.
//
// The node set mirrors the shape of a simple nested-condition DSL (field,
// operator, value, composite And/Or) generalised with member access, method
// calls, unary/binary operators, conditionals, constructors and anonymous
// aggregates, and a pipeline form for query operators, per spec §6.
package expr

// Kind identifies the concrete shape of a Node.
type Kind int

const (
	KindConstant Kind = iota
	KindParameter
	KindMember
	KindCall
	KindUnary
	KindBinary
	KindConditional
	KindNew
	KindAnonymous
	KindLambda
	KindPipeline
)

// Node is the single AST node type; which fields are meaningful depends on
// Kind. A tagged struct is used instead of an interface hierarchy so that
// visitors can switch on Kind without type assertions.
type Node struct {
	Kind Kind

	// KindConstant
	Value any

	// KindParameter: the root variable, e.g. "t".
	Name string

	// KindMember: Target.Path, e.g. t.P1 -> Target=Parameter(t), Path=["P1"].
	Target *Node
	Path   []string

	// KindCall: Target.Method(Args...), e.g. t.P1.StartsWith("al").
	Method string
	Args   []*Node

	// KindUnary: Op applied to Operand. Op one of "!", "neg", "convert".
	Op      string
	Operand *Node

	// KindBinary: Left Op Right. Op one of "==", "!=", "<", "<=", ">", ">=",
	// "&&", "||", "bitand", "bitor".
	Left  *Node
	Right *Node

	// KindConditional: If Then Else.
	If   *Node
	Then *Node
	Else *Node

	// KindNew / KindAnonymous: a constructed result shape. TypeName is empty
	// for an anonymous aggregate. Members preserves declaration order.
	TypeName string
	Members  []MemberInit

	// KindLambda: Param is the root variable name, Body is the expression.
	Param string
	Body  *Node

	// KindPipeline: an ordered list of query operators applied to Source.
	Source *Node
	Ops    []Operator
}

// MemberInit is a single `Name = Expr` slot in a KindNew/KindAnonymous node.
type MemberInit struct {
	Name string
	Expr *Node
}

// OperatorKind enumerates the pipeline operators recognised by the
// top-level query translator (spec §4.3).
type OperatorKind int

const (
	OpWhere OperatorKind = iota
	OpOrderBy
	OpOrderByDescending
	OpThenBy
	OpThenByDescending
	OpSkip
	OpTake
	OpFirst
	OpFirstOrDefault
	OpSingle
	OpSingleOrDefault
	OpLast
	OpAny
	OpAll
	OpCount
	OpLongCount
	OpSelect
	OpSelectMany
	OpIncludeControls
	OpWithinSizeLimit
	OpPage
	OpVirtualListView
	OpWithoutPaging
	OpAsNoTracking
	OpInNamingContext
	OpInSubtree
	OpAsDynamic
)

// Operator is one stage of a KindPipeline node.
type Operator struct {
	Kind OperatorKind

	// Predicate is used by OpWhere, OpAny, OpAll.
	Predicate *Node

	// Member is used by OpOrderBy/OpOrderByDescending/OpThenBy/OpThenByDescending
	// and names the mapped property the sort applies to.
	Member string

	// Count is used by OpSkip/OpTake/OpPage (page size)/OpVirtualListView (before count).
	Count int

	// Projection is used by OpSelect/OpSelectMany.
	Projection *Node

	// Controls is used by OpIncludeControls; opaque, passed through.
	Controls []any

	// NamingContext is used by OpInNamingContext.
	NamingContext string

	// VLV fields, used only by OpVirtualListView.
	VLVTargetOffset int
	VLVContentCount int
	VLVAfterCount   int
	VLVContextID    []byte
}

// Constant builds a KindConstant leaf.
func Constant(v any) *Node { return &Node{Kind: KindConstant, Value: v} }

// Parameter builds the KindParameter root variable node.
func Parameter(name string) *Node { return &Node{Kind: KindParameter, Name: name} }

// Member builds a KindMember node: target.path[0].path[1]...
func Member(target *Node, path ...string) *Node {
	return &Node{Kind: KindMember, Target: target, Path: path}
}

// Call builds a KindCall node: target.method(args...).
func Call(target *Node, method string, args ...*Node) *Node {
	return &Node{Kind: KindCall, Target: target, Method: method, Args: args}
}

// Unary builds a KindUnary node.
func Unary(op string, operand *Node) *Node {
	return &Node{Kind: KindUnary, Op: op, Operand: operand}
}

// Binary builds a KindBinary node.
func Binary(op string, left, right *Node) *Node {
	return &Node{Kind: KindBinary, Op: op, Left: left, Right: right}
}

// Conditional builds a KindConditional node.
func Conditional(cond, then, els *Node) *Node {
	return &Node{Kind: KindConditional, If: cond, Then: then, Else: els}
}

// New builds a KindNew constructor node.
func New(typeName string, members ...MemberInit) *Node {
	return &Node{Kind: KindNew, TypeName: typeName, Members: members}
}

// Anonymous builds a KindAnonymous aggregate node.
func Anonymous(members ...MemberInit) *Node {
	return &Node{Kind: KindAnonymous, Members: members}
}

// Lambda builds a KindLambda node, e.g. t => body.
func Lambda(param string, body *Node) *Node {
	return &Node{Kind: KindLambda, Param: param, Body: body}
}

// Pipeline builds a KindPipeline node over source with the given ops in
// the order they were applied.
func Pipeline(source *Node, ops ...Operator) *Node {
	return &Node{Kind: KindPipeline, Source: source, Ops: ops}
}

// Visitor is implemented by each translator pass; Visit is dispatched by the
// node's Kind via Node.Accept.
type Visitor interface {
	VisitConstant(n *Node) error
	VisitParameter(n *Node) error
	VisitMember(n *Node) error
	VisitCall(n *Node) error
	VisitUnary(n *Node) error
	VisitBinary(n *Node) error
	VisitConditional(n *Node) error
	VisitNew(n *Node) error
	VisitAnonymous(n *Node) error
	VisitLambda(n *Node) error
	VisitPipeline(n *Node) error
}

// Accept dispatches n to the matching Visitor method.
func (n *Node) Accept(v Visitor) error {
	if n == nil {
		return nil
	}

	switch n.Kind {
	case KindConstant:
		return v.VisitConstant(n)
	case KindParameter:
		return v.VisitParameter(n)
	case KindMember:
		return v.VisitMember(n)
	case KindCall:
		return v.VisitCall(n)
	case KindUnary:
		return v.VisitUnary(n)
	case KindBinary:
		return v.VisitBinary(n)
	case KindConditional:
		return v.VisitConditional(n)
	case KindNew:
		return v.VisitNew(n)
	case KindAnonymous:
		return v.VisitAnonymous(n)
	case KindLambda:
		return v.VisitLambda(n)
	case KindPipeline:
		return v.VisitPipeline(n)
	default:
		return nil
	}
}

// memberPathCollector walks a Node tree via Visitor/Accept and records every
// member-access path it encounters, regardless of how deeply the access is
// nested inside calls, operators, conditionals or constructors. Used by
// package translate to find the properties a projection member's full host
// expression depends on, when the member isn't itself a bare property
// reference (spec §4.2).
type memberPathCollector struct {
	paths [][]string
}

func (c *memberPathCollector) VisitConstant(*Node) error  { return nil }
func (c *memberPathCollector) VisitParameter(*Node) error { return nil }

func (c *memberPathCollector) VisitMember(n *Node) error {
	if len(n.Path) > 0 {
		c.paths = append(c.paths, n.Path)
	}

	return n.Target.Accept(c)
}

func (c *memberPathCollector) VisitCall(n *Node) error {
	if err := n.Target.Accept(c); err != nil {
		return err
	}

	for _, a := range n.Args {
		if err := a.Accept(c); err != nil {
			return err
		}
	}

	return nil
}

func (c *memberPathCollector) VisitUnary(n *Node) error { return n.Operand.Accept(c) }

func (c *memberPathCollector) VisitBinary(n *Node) error {
	if err := n.Left.Accept(c); err != nil {
		return err
	}

	return n.Right.Accept(c)
}

func (c *memberPathCollector) VisitConditional(n *Node) error {
	for _, child := range []*Node{n.If, n.Then, n.Else} {
		if err := child.Accept(c); err != nil {
			return err
		}
	}

	return nil
}

func (c *memberPathCollector) visitMembers(n *Node) error {
	for _, m := range n.Members {
		if err := m.Expr.Accept(c); err != nil {
			return err
		}
	}

	return nil
}

func (c *memberPathCollector) VisitNew(n *Node) error       { return c.visitMembers(n) }
func (c *memberPathCollector) VisitAnonymous(n *Node) error { return c.visitMembers(n) }
func (c *memberPathCollector) VisitLambda(n *Node) error    { return n.Body.Accept(c) }

func (c *memberPathCollector) VisitPipeline(n *Node) error {
	if err := n.Source.Accept(c); err != nil {
		return err
	}

	for _, op := range n.Ops {
		if err := op.Predicate.Accept(c); err != nil {
			return err
		}

		if err := op.Projection.Accept(c); err != nil {
			return err
		}
	}

	return nil
}

// CollectMemberPaths returns every member path, of any length, referenced
// anywhere within n, via a Visitor walk rather than a type switch, so a
// projection member built from an arbitrary host expression (a method call,
// an operator, a conditional) still yields the properties it ultimately
// reads.
func CollectMemberPaths(n *Node) [][]string {
	c := &memberPathCollector{}
	_ = n.Accept(c)

	return c.paths
}

// MemberPath renders a member-access chain as a "t.P1.P2"-style dotted
// string, used in unsupported-predicate error messages (spec §4.1).
func (n *Node) MemberPath() string {
	if n == nil {
		return ""
	}

	switch n.Kind {
	case KindParameter:
		return n.Name
	case KindMember:
		path := n.Target.MemberPath()
		for _, p := range n.Path {
			path += "." + p
		}

		return path
	default:
		return "<expr>"
	}
}
