package directory_test

import (
	"errors"
	"testing"

	"github.com/sgnl-ai/ldapquery/directory"
	"github.com/sgnl-ai/ldapquery/internal/testsupport"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/mapping/convert"
	"github.com/sgnl-ai/ldapquery/querybuilder"
)

type person struct {
	DN  string
	CN  string
	Age int64
}

func testClassMap(t *testing.T) *mapping.ClassMap[person] {
	t.Helper()

	cm, err := mapping.NewBuilder[person]("ou=people,dc=example,dc=com", func() person { return person{} }).
		ObjectClass("person", true).
		DistinguishedName("distinguishedName",
			func(p person) string { return p.DN },
			func(p *person, v string) { p.DN = v },
		).
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

func TestContext_AddGetUpdateDelete(t *testing.T) {
	cm := testClassMap(t)
	fc := testsupport.New()
	dc := directory.New(fc, nil)

	instance := &person{DN: "cn=alice,ou=people,dc=example,dc=com", CN: "alice", Age: 30}

	var preAddCalled, postAddCalled bool

	listener := &directory.Listener[person]{
		PreAdd:  func(*person) error { preAddCalled = true; return nil },
		PostAdd: func(*person) error { postAddCalled = true; return nil },
	}

	if err := directory.Add(dc, cm, instance, listener); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !preAddCalled || !postAddCalled {
		t.Fatal("expected both PreAdd and PostAdd listeners to run")
	}

	fetched, tr, err := directory.GetByDN(dc, cm, instance.DN)
	if err != nil {
		t.Fatalf("get by dn: %v", err)
	}

	if fetched.CN != "alice" || fetched.Age != 30 {
		t.Fatalf("unexpected fetched instance: %+v", fetched)
	}

	fetched.Age = 31

	if err := directory.Update(dc, tr, fetched, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	refetched, _, err := directory.GetByDN(dc, cm, instance.DN)
	if err != nil {
		t.Fatalf("get by dn after update: %v", err)
	}

	if refetched.Age != 31 {
		t.Fatalf("expected updated age 31, got %d", refetched.Age)
	}

	var preDeleteDN string

	deleteListener := &directory.Listener[person]{
		PreDelete: func(dn string) error { preDeleteDN = dn; return nil },
	}

	if err := directory.Delete(dc, instance.DN, false, deleteListener); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if preDeleteDN != instance.DN {
		t.Fatalf("expected PreDelete to observe %q, got %q", instance.DN, preDeleteDN)
	}

	if _, _, err := directory.GetByDN(dc, cm, instance.DN); err == nil {
		t.Fatal("expected the entry to be gone after delete")
	}
}

func TestContext_AddAbortedByFailingPreAddListener(t *testing.T) {
	cm := testClassMap(t)
	fc := testsupport.New()
	dc := directory.New(fc, nil)

	instance := &person{DN: "cn=mallory,ou=people,dc=example,dc=com", CN: "mallory", Age: 20}

	listenerErr := errors.New("rejected by policy")

	listener := &directory.Listener[person]{
		PreAdd: func(*person) error { return listenerErr },
	}

	if err := directory.Add(dc, cm, instance, listener); !errors.Is(err, listenerErr) {
		t.Fatalf("expected the PreAdd error to propagate, got %v", err)
	}

	if _, _, err := directory.GetByDN(dc, cm, instance.DN); err == nil {
		t.Fatal("expected the add to have been aborted before the wire call")
	}
}

func TestContext_Query(t *testing.T) {
	cm := testClassMap(t)
	fc := testsupport.New()
	fc.Seed("cn=alice,ou=people,dc=example,dc=com", map[string][]string{
		"cn":          {"alice"},
		"age":         {"30"},
		"objectClass": {"person"},
	})
	fc.Seed("cn=bob,ou=people,dc=example,dc=com", map[string][]string{
		"cn":          {"bob"},
		"age":         {"40"},
		"objectClass": {"person"},
	})

	dc := directory.New(fc, nil)

	result, err := directory.Query(dc, querybuilder.New[person]("p"), cm)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
}

func TestContext_Dispose(t *testing.T) {
	fc := testsupport.New()
	dc := directory.New(fc, nil)

	if err := dc.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}

	cm := testClassMap(t)
	if _, _, err := directory.GetByDN(dc, cm, "cn=alice,ou=people,dc=example,dc=com"); err == nil {
		t.Fatal("expected disposed context to reject further requests")
	}
}

func TestRetrieveRangesContext_MultipleChunks(t *testing.T) {
	fc := testsupport.New()
	fc.Seed("cn=group1,ou=groups,dc=example,dc=com", map[string][]string{
		"objectClass":      {"group"},
		"member;range=0-2": {"alice", "bob", "carol"},
		"member;range=3-*": {"dave", "erin"},
	})

	dc := directory.New(fc, nil)

	values, err := directory.RetrieveRanges(dc, "cn=group1,ou=groups,dc=example,dc=com", "member", 3,
		func(raw string) (string, error) { return raw, nil })
	if err != nil {
		t.Fatalf("retrieve ranges: %v", err)
	}

	want := []string{"alice", "bob", "carol", "dave", "erin"}

	if len(values) != len(want) {
		t.Fatalf("expected %v, got %v", want, values)
	}

	for i, v := range want {
		if values[i] != v {
			t.Fatalf("expected %v, got %v", want, values)
		}
	}
}
