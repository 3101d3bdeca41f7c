// Package paging drives server-side result paging: the PagedResults cookie
// loop (RFC 2696) and the Virtual List View window as an alternate strategy
// (spec §4.6). Cookie handling here is grounded directly on the teacher's
// datasource.go paging loop (NewControlPaging/SetCookie/FindControl), turned
// from a single-page-per-adapter-call shape into a driver that exhausts
// pages internally until Skip/Take are satisfied or the server is done.
package paging

import (
	"context"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/ldaperr"
)

// Searcher is the minimal collaborator the paging driver needs from a
// directory connection.
type Searcher interface {
	SearchContext(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// Request bundles the fixed parts of a search request the driver replays
// across pages, plus the resolved skip/take/paging parameters from a Plan.
type Request struct {
	BaseDN          string
	Scope           int
	DerefAliases    int
	TimeLimit       int
	TypesOnly       bool
	Filter          string
	Attributes      []string
	ExtraControls   []ldap.Control
	PageSize        int
	Skip            int
	Take            int
	HasTake         bool
	WithinSizeLimit bool
}

// Result is the accumulated outcome of a paged search.
type Result struct {
	Entries []*ldap.Entry
	// Truncated is set when collection stopped early because Take was
	// satisfied, not because the server ran out of pages.
	Truncated bool
}

// DrivePagedSearch runs the RFC 2696 cookie loop against searcher, discarding
// the first Skip entries across page boundaries and stopping once Take
// entries have been collected (if HasTake), or the server returns an empty
// cookie. A size-limit result from the server is tolerated when
// WithinSizeLimit is set (spec §4.4 within_size_limit) and surfaced as
// KindSizeLimitExceeded otherwise.
func DrivePagedSearch(ctx context.Context, searcher Searcher, req Request) (Result, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var (
		out     []*ldap.Entry
		skipped int
		cookie  []byte
	)

	for {
		pagingControl := ldap.NewControlPaging(uint32(pageSize))
		if len(cookie) > 0 {
			pagingControl.SetCookie(cookie)
		}

		controls := append([]ldap.Control{pagingControl}, req.ExtraControls...)

		searchRequest := ldap.NewSearchRequest(
			req.BaseDN,
			req.Scope,
			req.DerefAliases,
			0,
			req.TimeLimit,
			req.TypesOnly,
			req.Filter,
			req.Attributes,
			controls,
		)

		result, err := searcher.SearchContext(ctx, searchRequest)

		sizeLimited := false

		if err != nil {
			if ldapErr, ok := err.(*ldap.Error); ok && ldapErr.ResultCode == ldap.LDAPResultSizeLimitExceeded {
				if !req.WithinSizeLimit {
					return Result{}, ldaperr.SizeLimitExceeded("server size limit exceeded while paging %s", req.BaseDN)
				}

				if result == nil {
					break
				}

				sizeLimited = true
			} else {
				return Result{}, ldaperr.DirectoryOperation(0, "", err.Error())
			}
		}

		for _, entry := range result.Entries {
			if skipped < req.Skip {
				skipped++

				continue
			}

			out = append(out, entry)

			if req.HasTake && len(out) >= req.Take {
				return Result{Entries: out, Truncated: true}, nil
			}
		}

		if sizeLimited {
			break
		}

		next := ldap.FindControl(result.Controls, ldap.ControlTypePaging)

		ctrl, ok := next.(*ldap.ControlPaging)
		if !ok || ctrl == nil || len(ctrl.Cookie) == 0 {
			break
		}

		cookie = ctrl.Cookie

		select {
		case <-ctx.Done():
			return Result{}, ldaperr.Cancelled(ctx.Err())
		default:
		}
	}

	return Result{Entries: out}, nil
}
