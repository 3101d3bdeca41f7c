package paging_test

import (
	"context"
	"testing"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/paging"
)

// sequentialSearcher plays back a fixed sequence of pages, one per call,
// emitting a paging control cookie on every page but the last.
type sequentialSearcher struct {
	pages [][]*ldap.Entry
	calls int
}

func (s *sequentialSearcher) SearchContext(_ context.Context, _ *ldap.SearchRequest) (*ldap.SearchResult, error) {
	idx := s.calls
	s.calls++

	entries := s.pages[idx]

	var controls []ldap.Control

	if idx < len(s.pages)-1 {
		ctrl := ldap.NewControlPaging(uint32(len(entries)))
		ctrl.SetCookie([]byte{byte(idx + 1)})
		controls = append(controls, ctrl)
	}

	return &ldap.SearchResult{Entries: entries, Controls: controls}, nil
}

func entries(cns ...string) []*ldap.Entry {
	out := make([]*ldap.Entry, len(cns))
	for i, cn := range cns {
		out[i] = &ldap.Entry{DN: "cn=" + cn + ",dc=example,dc=com"}
	}

	return out
}

func TestDrivePagedSearch_ExhaustsAllPages(t *testing.T) {
	searcher := &sequentialSearcher{pages: [][]*ldap.Entry{
		entries("a", "b"),
		entries("c", "d"),
		entries("e"),
	}}

	result, err := paging.DrivePagedSearch(context.Background(), searcher, paging.Request{PageSize: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Entries) != 5 {
		t.Fatalf("expected 5 entries across 3 pages, got %d", len(result.Entries))
	}

	if result.Truncated {
		t.Fatal("expected Truncated=false when the server ran out of pages")
	}

	if searcher.calls != 3 {
		t.Fatalf("expected 3 page requests, got %d", searcher.calls)
	}
}

func TestDrivePagedSearch_SkipAcrossPageBoundary(t *testing.T) {
	searcher := &sequentialSearcher{pages: [][]*ldap.Entry{
		entries("a", "b"),
		entries("c", "d"),
	}}

	result, err := paging.DrivePagedSearch(context.Background(), searcher, paging.Request{PageSize: 2, Skip: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Entries) != 1 || result.Entries[0].DN != "cn=d,dc=example,dc=com" {
		t.Fatalf("expected only the 4th entry after skipping 3, got %+v", result.Entries)
	}
}

func TestDrivePagedSearch_StopsOnceTakeSatisfied(t *testing.T) {
	searcher := &sequentialSearcher{pages: [][]*ldap.Entry{
		entries("a", "b"),
		entries("c", "d"),
		entries("e"),
	}}

	result, err := paging.DrivePagedSearch(context.Background(), searcher, paging.Request{PageSize: 2, Take: 3, HasTake: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Entries) != 3 {
		t.Fatalf("expected exactly 3 entries, got %d", len(result.Entries))
	}

	if !result.Truncated {
		t.Fatal("expected Truncated=true when Take cut the search short")
	}

	if searcher.calls != 2 {
		t.Fatalf("expected the driver to stop after the 2nd page, made %d calls", searcher.calls)
	}
}

type sizeLimitSearcher struct{ tolerated bool }

func (s *sizeLimitSearcher) SearchContext(_ context.Context, _ *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return &ldap.SearchResult{Entries: entries("a")}, &ldap.Error{ResultCode: ldap.LDAPResultSizeLimitExceeded}
}

func TestDrivePagedSearch_SizeLimitExceededPropagates(t *testing.T) {
	_, err := paging.DrivePagedSearch(context.Background(), &sizeLimitSearcher{}, paging.Request{PageSize: 10})
	if err == nil {
		t.Fatal("expected an error when the server size limit is exceeded and WithinSizeLimit is unset")
	}
}

func TestDrivePagedSearch_SizeLimitToleratedWithinSizeLimit(t *testing.T) {
	result, err := paging.DrivePagedSearch(context.Background(), &sizeLimitSearcher{}, paging.Request{PageSize: 10, WithinSizeLimit: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Entries) != 1 {
		t.Fatalf("expected the partial page to be kept, got %d entries", len(result.Entries))
	}
}
