package querybuilder_test

import (
	"testing"

	"github.com/sgnl-ai/ldapquery/expr"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/mapping/convert"
	"github.com/sgnl-ai/ldapquery/querybuilder"
	"github.com/sgnl-ai/ldapquery/translate"
)

type person struct {
	CN  string
	Age int64
}

func testClassMap(t *testing.T) *mapping.ClassMap[person] {
	t.Helper()

	cm, err := mapping.NewBuilder[person]("dc=example,dc=com", func() person { return person{} }).
		ObjectClass("person", true).
		Property("cn", convert.String(),
			func(p person) any { return p.CN },
			func(p *person, v any) error { p.CN = v.(string); return nil },
		).
		Property("age", convert.Int(),
			func(p person) any { return p.Age },
			func(p *person, v any) error { p.Age = v.(int64); return nil },
		).
		Build()
	if err != nil {
		t.Fatalf("build class map: %v", err)
	}

	return cm
}

func TestBuildPlan_WhereOrderBySkipTake(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t")
	pred := expr.Binary("==", expr.Member(q.Param(), "cn"), expr.Constant("alice"))

	q = q.Where(pred).OrderBy("age").Skip(10).Take(20)

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Filter != "(cn=alice)" {
		t.Fatalf("got filter %q", plan.Filter)
	}

	if len(plan.Sort) != 1 || plan.Sort[0].AttributeName != "age" || plan.Sort[0].Descending {
		t.Fatalf("got sort %+v", plan.Sort)
	}

	if plan.Skip != 10 || plan.Take != 20 || !plan.HasTake {
		t.Fatalf("got skip=%d take=%d hasTake=%v", plan.Skip, plan.Take, plan.HasTake)
	}
}

func TestBuildPlan_PageDefaultsFromTake(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t").Take(50).Page(0)

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Paging != querybuilder.PagingCookie {
		t.Fatalf("got paging mode %v", plan.Paging)
	}

	if plan.PageSize != 50 {
		t.Fatalf("got page size %d", plan.PageSize)
	}
}

func TestBuildPlan_VirtualListView(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t").VirtualListView(100, 2, 3, 1000, []byte("ctx"))

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Paging != querybuilder.PagingVLV {
		t.Fatalf("got paging mode %v", plan.Paging)
	}

	if plan.VLV.TargetOffset != 100 || plan.VLV.BeforeCount != 2 || plan.VLV.AfterCount != 3 || plan.VLV.ContentCount != 1000 {
		t.Fatalf("got vlv %+v", plan.VLV)
	}
}

func TestBuildPlan_AnyRewritesToPredicate(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t")
	pred := expr.Binary("==", expr.Member(q.Param(), "cn"), expr.Constant("alice"))
	q = q.Any(pred)

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Terminal != querybuilder.TerminalAny {
		t.Fatalf("got terminal %v", plan.Terminal)
	}

	if plan.Filter != "(cn=alice)" {
		t.Fatalf("got filter %q", plan.Filter)
	}
}

func TestBuildPlan_SelectSingleMember(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t")
	q = q.Select(expr.Member(q.Param(), "cn"))

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.HasProjection || plan.Projection.Kind != translate.ProjectionSingleMember {
		t.Fatalf("got projection %+v", plan.Projection)
	}
}

func TestBuildPlan_YieldNoResultsOnConstantFalse(t *testing.T) {
	cm := testClassMap(t)
	q := querybuilder.New[person]("t").Where(expr.Constant(false))

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.YieldNoResults {
		t.Fatal("expected YieldNoResults")
	}
}
