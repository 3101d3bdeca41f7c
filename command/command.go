// Package command implements the closed set of directory command variants
// (spec §4.4) as a single dispatcher operating over a resolved
// querybuilder.Plan, instead of a class hierarchy of request objects.
// QueryCommand runs the pre-flight steps of spec §4.4 (naming-context
// resolution, duplicate-control rejection, yield_no_results short circuit,
// objectClass injection, sort/paging control attachment, result-code
// assertion) before talking to the connection.
package command

import (
	"context"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/changetracker"
	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/paging"
	"github.com/sgnl-ai/ldapquery/querybuilder"
	"github.com/sgnl-ai/ldapquery/translate"
)

// Connection is the minimal wire-level collaborator every command variant
// needs. Package directory's wireConnection adapts a *ldap.Conn to it, adding
// context cancellation to searches; lifecycle listeners are run by
// directory.Context, not by the connection.
type Connection interface {
	SearchContext(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
	ModifyDN(req *ldap.ModifyDNRequest) error
}

// Result is the outcome of a QueryCommand, carrying whichever of its fields
// the originating plan's Terminal populated.
type Result[T any] struct {
	Entries   []*T
	Trackers  []*changetracker.Tracker[T]
	Single    *T
	Found     bool
	Count     int
	LongCount int64
	Exists    bool
	Truncated bool
	VLV       *paging.VLVResponse
}

// QueryCommand runs plan against cm over conn and returns the materialised
// result shaped according to plan.Terminal.
func QueryCommand[T any](ctx context.Context, conn Connection, cm *mapping.ClassMap[T], plan *querybuilder.Plan) (Result[T], error) {
	if plan.YieldNoResults {
		return emptyResult[T](plan), nil
	}

	baseDN := plan.NamingContext
	if baseDN == "" {
		baseDN = cm.NamingContext
	}

	if err := rejectDuplicateControls(plan.Controls); err != nil {
		return Result[T]{}, err
	}

	filter := translate.CombineFilter(translate.ObjectClassGate(cm), plan.Filter)

	scope := ldap.ScopeSingleLevel
	if plan.InSubtree {
		scope = ldap.ScopeWholeSubtree
	}

	attrs := requestedAttributes(cm, plan)

	controls := buildSortControls(plan)

	for _, c := range plan.Controls {
		if lc, ok := c.(ldap.Control); ok {
			controls = append(controls, lc)
		}
	}

	switch {
	case (plan.Terminal == querybuilder.TerminalCount || plan.Terminal == querybuilder.TerminalLongCount) &&
		plan.Paging == querybuilder.PagingCookie && !plan.WithoutPaging:
		return pagedCountCommand[T](ctx, conn, baseDN, scope, filter, controls, plan)

	case plan.Terminal == querybuilder.TerminalCount || plan.Terminal == querybuilder.TerminalLongCount:
		return countCommand[T](ctx, conn, baseDN, scope, filter, controls, plan)

	case plan.Terminal == querybuilder.TerminalAny || plan.Terminal == querybuilder.TerminalAll:
		return existsCommand[T](ctx, conn, baseDN, scope, filter, controls, plan)

	case plan.Paging == querybuilder.PagingVLV:
		return vlvCommand(ctx, conn, cm, baseDN, scope, filter, attrs, controls, plan)

	case plan.Paging == querybuilder.PagingCookie && !plan.WithoutPaging:
		return pagedCommand(ctx, conn, cm, baseDN, scope, filter, attrs, controls, plan)

	default:
		return simpleSearchCommand(ctx, conn, cm, baseDN, scope, filter, attrs, controls, plan)
	}
}

func emptyResult[T any](plan *querybuilder.Plan) Result[T] {
	switch plan.Terminal {
	case querybuilder.TerminalCount, querybuilder.TerminalLongCount:
		return Result[T]{}
	case querybuilder.TerminalAny:
		return Result[T]{Exists: false}
	case querybuilder.TerminalAll:
		return Result[T]{Exists: true}
	default:
		return Result[T]{}
	}
}

func rejectDuplicateControls(controls []any) error {
	seen := make(map[string]struct{}, len(controls))

	for _, c := range controls {
		lc, ok := c.(ldap.Control)
		if !ok {
			continue
		}

		t := lc.GetControlType()
		if _, exists := seen[t]; exists {
			return ldaperr.Translation("duplicate request control %s", t)
		}

		seen[t] = struct{}{}
	}

	return nil
}

func requestedAttributes[T any](cm *mapping.ClassMap[T], plan *querybuilder.Plan) []string {
	if plan.HasProjection {
		return plan.Projection.Attributes
	}

	names := cm.OrderedPropertyNames()
	attrs := make([]string, 0, len(names))

	for _, n := range names {
		attrs = append(attrs, cm.Properties[n].AttributeName)
	}

	// objectClass injection: sub-type resolution reads the entry's
	// objectClass values, so they are loaded unless a catch-all is mapped.
	if _, mapped := cm.Properties["objectClass"]; !mapped &&
		len(cm.SubTypeMappings) > 0 && !cm.WithoutSubTypeMapping && cm.CatchAll == nil {
		attrs = append(attrs, "objectClass")
	}

	return attrs
}

func buildSortControls(plan *querybuilder.Plan) []ldap.Control {
	if len(plan.Sort) == 0 {
		return nil
	}

	keys := make([]*ldap.SortKey, 0, len(plan.Sort))

	for _, s := range plan.Sort {
		keys = append(keys, &ldap.SortKey{AttributeType: s.AttributeName, ReverseOrder: s.Descending})
	}

	return []ldap.Control{ldap.NewControlServerSideSorting(keys)}
}

func simpleSearchCommand[T any](
	ctx context.Context, conn Connection, cm *mapping.ClassMap[T],
	baseDN string, scope int, filter string, attrs []string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	req := ldap.NewSearchRequest(baseDN, scope, ldap.DerefAlways, 0, 0, false, filter, attrs, controls)

	res, err := conn.SearchContext(ctx, req)
	if err != nil {
		ldapErr, ok := err.(*ldap.Error)
		if !ok || ldapErr.ResultCode != ldap.LDAPResultSizeLimitExceeded || !plan.WithinSizeLimit || res == nil {
			return Result[T]{}, wrapDirectoryError(err)
		}
	}

	entries, trackers, err := materializeAll(cm, res.Entries, plan.NoTracking)
	if err != nil {
		return Result[T]{}, err
	}

	if plan.Skip > 0 {
		if plan.Skip >= len(entries) {
			entries, trackers = nil, nil
		} else {
			entries, trackers = entries[plan.Skip:], trackers[plan.Skip:]
		}
	}

	if plan.HasTake && plan.Take < len(entries) {
		entries, trackers = entries[:plan.Take], trackers[:plan.Take]
	}

	return terminalShape(entries, trackers, plan)
}

func pagedCommand[T any](
	ctx context.Context, conn Connection, cm *mapping.ClassMap[T],
	baseDN string, scope int, filter string, attrs []string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	pageResult, err := paging.DrivePagedSearch(ctx, connSearcher{conn}, paging.Request{
		BaseDN:          baseDN,
		Scope:           scope,
		DerefAliases:    ldap.DerefAlways,
		Filter:          filter,
		Attributes:      attrs,
		ExtraControls:   controls,
		PageSize:        plan.PageSize,
		Skip:            plan.Skip,
		Take:            plan.Take,
		HasTake:         plan.HasTake,
		WithinSizeLimit: plan.WithinSizeLimit,
	})
	if err != nil {
		return Result[T]{}, err
	}

	entries, trackers, err := materializeAll(cm, pageResult.Entries, plan.NoTracking)
	if err != nil {
		return Result[T]{}, err
	}

	result, err := terminalShape(entries, trackers, plan)
	if err != nil {
		return Result[T]{}, err
	}

	result.Truncated = pageResult.Truncated

	return result, nil
}

func vlvCommand[T any](
	ctx context.Context, conn Connection, cm *mapping.ClassMap[T],
	baseDN string, scope int, filter string, attrs []string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	vlvControl := &paging.ControlVLVRequest{
		BeforeCount:  plan.VLV.BeforeCount,
		AfterCount:   plan.VLV.AfterCount,
		TargetOffset: plan.VLV.TargetOffset,
		ContentCount: plan.VLV.ContentCount,
		ContextID:    plan.VLV.ContextID,
	}

	sortControls := buildSortControls(plan)

	allControls := append(append([]ldap.Control{}, sortControls...), controls...)
	allControls = append(allControls, vlvControl)

	req := ldap.NewSearchRequest(baseDN, scope, ldap.DerefAlways, 0, 0, false, filter, attrs, allControls)

	res, err := conn.SearchContext(ctx, req)
	if err != nil {
		return Result[T]{}, wrapDirectoryError(err)
	}

	entries, trackers, err := materializeAll(cm, res.Entries, plan.NoTracking)
	if err != nil {
		return Result[T]{}, err
	}

	result, err := terminalShape(entries, trackers, plan)
	if err != nil {
		return Result[T]{}, err
	}

	if vlvResp, ok := paging.DecodeVLVResponse(res.Controls); ok {
		result.VLV = vlvResp
	}

	return result, nil
}

func countCommand[T any](
	ctx context.Context, conn Connection, baseDN string, scope int, filter string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	req := ldap.NewSearchRequest(baseDN, scope, ldap.DerefAlways, 0, 0, false, filter, []string{"1.1"}, controls)

	res, err := conn.SearchContext(ctx, req)
	if err != nil {
		return Result[T]{}, wrapDirectoryError(err)
	}

	n := len(res.Entries)
	if plan.Skip > 0 {
		n -= plan.Skip
		if n < 0 {
			n = 0
		}
	}

	if plan.HasTake && n > plan.Take {
		n = plan.Take
	}

	return Result[T]{Count: n, LongCount: int64(n)}, nil
}

// pagedCountCommand satisfies Count/LongCount over a query that also
// requests paging: it drives the same RFC 2696 cookie loop a materialising
// paged query would, so a result set larger than the server's size limit
// (or larger than one page) is still counted in full across however many
// pages the server hands back, instead of failing or under-counting on a
// single size-limited search.
func pagedCountCommand[T any](
	ctx context.Context, conn Connection, baseDN string, scope int, filter string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	pageResult, err := paging.DrivePagedSearch(ctx, connSearcher{conn}, paging.Request{
		BaseDN:          baseDN,
		Scope:           scope,
		DerefAliases:    ldap.DerefAlways,
		Filter:          filter,
		Attributes:      []string{"1.1"},
		ExtraControls:   controls,
		PageSize:        plan.PageSize,
		Skip:            plan.Skip,
		Take:            plan.Take,
		HasTake:         plan.HasTake,
		WithinSizeLimit: plan.WithinSizeLimit,
	})
	if err != nil {
		return Result[T]{}, err
	}

	n := len(pageResult.Entries)

	return Result[T]{Count: n, LongCount: int64(n)}, nil
}

func existsCommand[T any](
	ctx context.Context, conn Connection, baseDN string, scope int, filter string, controls []ldap.Control, plan *querybuilder.Plan,
) (Result[T], error) {
	req := ldap.NewSearchRequest(baseDN, scope, ldap.DerefAlways, 1, 0, false, filter, []string{"1.1"}, controls)

	res, err := conn.SearchContext(ctx, req)
	if err != nil {
		return Result[T]{}, wrapDirectoryError(err)
	}

	exists := len(res.Entries) > 0

	if plan.Terminal == querybuilder.TerminalAll {
		// All(pred) was rewritten to !Any(!pred) by the query builder, so
		// "exists" here means a counter-example was found.
		exists = !exists
	}

	return Result[T]{Exists: exists}, nil
}

func terminalShape[T any](entries []*T, trackers []*changetracker.Tracker[T], plan *querybuilder.Plan) (Result[T], error) {
	switch plan.Terminal {
	case querybuilder.TerminalFirst:
		if len(entries) == 0 {
			return Result[T]{}, ldaperr.NoResult("no entry matched the query")
		}

		return Result[T]{Single: entries[0], Found: true}, nil

	case querybuilder.TerminalFirstOrDefault:
		if len(entries) == 0 {
			return Result[T]{Found: false}, nil
		}

		return Result[T]{Single: entries[0], Found: true}, nil

	case querybuilder.TerminalSingle, querybuilder.TerminalSingleOrDefault:
		if len(entries) == 0 {
			if plan.Terminal == querybuilder.TerminalSingle {
				return Result[T]{}, ldaperr.NoResult("no entry matched the query")
			}

			return Result[T]{Found: false}, nil
		}

		if len(entries) > 1 {
			return Result[T]{}, ldaperr.MultipleResults(len(entries), plan.Filter)
		}

		return Result[T]{Single: entries[0], Found: true}, nil

	case querybuilder.TerminalLast:
		if len(entries) == 0 {
			return Result[T]{}, ldaperr.NoResult("no entry matched the query")
		}

		return Result[T]{Single: entries[len(entries)-1], Found: true}, nil

	default:
		return Result[T]{Entries: entries, Trackers: trackers}, nil
	}
}

func wrapDirectoryError(err error) error {
	if ldapErr, ok := err.(*ldap.Error); ok {
		return ldaperr.DirectoryOperation(uint16(ldapErr.ResultCode), "", ldapErr.Error())
	}

	return ldaperr.Connection(err)
}

type connSearcher struct{ conn Connection }

func (s connSearcher) SearchContext(ctx context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return s.conn.SearchContext(ctx, req)
}

// materializeAll converts LDAP entries into *T values plus (unless
// noTracking) their change trackers, in server order.
func materializeAll[T any](cm *mapping.ClassMap[T], raw []*ldap.Entry, noTracking bool) ([]*T, []*changetracker.Tracker[T], error) {
	entries := make([]*T, 0, len(raw))

	var trackers []*changetracker.Tracker[T]
	if !noTracking {
		trackers = make([]*changetracker.Tracker[T], 0, len(raw))
	}

	for _, e := range raw {
		instance, err := Materialize(cm, e)
		if err != nil {
			return nil, nil, err
		}

		entries = append(entries, instance)

		if !noTracking {
			tr, err := changetracker.Snapshot(cm, instance)
			if err != nil {
				return nil, nil, err
			}

			trackers = append(trackers, tr)
		}
	}

	return entries, trackers, nil
}

// Materialize builds one *T from a raw LDAP entry using cm's property set,
// resolving sub-type mappings by the entry's objectClass values and routing
// unmapped attributes to CatchAll when set.
func Materialize[T any](cm *mapping.ClassMap[T], entry *ldap.Entry) (*T, error) {
	effective := resolveSubType(cm, entry)

	instance := effective.New()
	ptr := &instance

	byAttr := make(map[string]*ldap.EntryAttribute, len(entry.Attributes))
	for _, a := range entry.Attributes {
		byAttr[a.Name] = a
	}

	matched := make(map[string]bool, len(entry.Attributes))

	for _, name := range effective.OrderedPropertyNames() {
		pm := effective.Properties[name]

		if pm.IsDistinguishedName {
			if err := pm.Set(ptr, entry.DN); err != nil {
				return nil, ldaperr.Mapping("failed to set dn property %s: %v", pm.AttributeName, err)
			}

			continue
		}

		attr, ok := byAttr[pm.AttributeName]
		if !ok || len(attr.Values) == 0 {
			continue
		}

		matched[pm.AttributeName] = true

		if pm.Multivalued {
			values := make([]any, 0, len(attr.Values))

			for i, raw := range attr.Values {
				var rawBytes []byte
				if i < len(attr.ByteValues) {
					rawBytes = attr.ByteValues[i]
				}

				v, err := pm.Converter.FromLDAP(raw, rawBytes)
				if err != nil {
					return nil, ldaperr.Mapping("failed to convert %s: %v", pm.AttributeName, err)
				}

				values = append(values, v)
			}

			if err := pm.Set(ptr, values); err != nil {
				return nil, ldaperr.Mapping("failed to set %s: %v", pm.AttributeName, err)
			}

			continue
		}

		var rawBytes []byte
		if len(attr.ByteValues) > 0 {
			rawBytes = attr.ByteValues[0]
		}

		v, err := pm.Converter.FromLDAP(attr.Values[0], rawBytes)
		if err != nil {
			return nil, ldaperr.Mapping("failed to convert %s: %v", pm.AttributeName, err)
		}

		if err := pm.Set(ptr, v); err != nil {
			return nil, ldaperr.Mapping("failed to set %s: %v", pm.AttributeName, err)
		}
	}

	if effective.CatchAll != nil {
		unmatched := make(map[string][]string)

		for _, a := range entry.Attributes {
			if !matched[a.Name] {
				unmatched[a.Name] = a.Values
			}
		}

		if len(unmatched) > 0 {
			effective.CatchAll(ptr, unmatched)
		}
	}

	return ptr, nil
}

func resolveSubType[T any](cm *mapping.ClassMap[T], entry *ldap.Entry) *mapping.ClassMap[T] {
	if cm.WithoutSubTypeMapping || len(cm.SubTypeMappings) == 0 {
		return cm
	}

	classes := entry.GetAttributeValues("objectClass")

	for _, oc := range classes {
		if sub, ok := cm.SubTypeMappings[oc]; ok {
			return sub
		}
	}

	return cm
}

// GetByDN fetches a single entry by its distinguished name (spec §4.4 GetByDn).
func GetByDN[T any](ctx context.Context, conn Connection, cm *mapping.ClassMap[T], dn string, noTracking bool) (*T, *changetracker.Tracker[T], error) {
	if dn == "" {
		return nil, nil, ldaperr.InvalidArgument("distinguished name must not be empty")
	}

	attrs := requestedAttributes(cm, &querybuilder.Plan{})

	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject, ldap.DerefAlways, 0, 0, false, "(objectClass=*)", attrs, nil)

	res, err := conn.SearchContext(ctx, req)
	if err != nil {
		return nil, nil, wrapDirectoryError(err)
	}

	if len(res.Entries) == 0 {
		return nil, nil, ldaperr.NoResult("no entry found at dn %s", dn)
	}

	instance, err := Materialize(cm, res.Entries[0])
	if err != nil {
		return nil, nil, err
	}

	if noTracking {
		return instance, nil, nil
	}

	tr, err := changetracker.Snapshot(cm, instance)
	if err != nil {
		return nil, nil, err
	}

	return instance, tr, nil
}

// Add builds and sends an add request for instance against cm, injecting
// every configured objectClass term (spec §4.4 objectClass injection).
func Add[T any](ctx context.Context, conn Connection, cm *mapping.ClassMap[T], instance *T) error {
	dn := dnOf(cm, instance)
	if dn == "" {
		return ldaperr.InvalidArgument("entry has no distinguished name set")
	}

	req := ldap.NewAddRequest(dn, nil)

	classes := make([]string, 0, len(cm.ObjectClasses))
	for _, oc := range cm.ObjectClasses {
		classes = append(classes, oc.Value)
	}

	req.Attribute("objectClass", classes)

	for _, name := range cm.OrderedPropertyNames() {
		pm := cm.Properties[name]
		if pm.IsDistinguishedName || pm.ReadOnly == mapping.ReadOnlyOnAdd || pm.ReadOnly == mapping.ReadOnlyAlways {
			continue
		}

		values, err := propertyRawValues(pm, instance)
		if err != nil {
			return err
		}

		if len(values) == 0 {
			continue
		}

		req.Attribute(pm.AttributeName, values)
	}

	if err := conn.Add(req); err != nil {
		return wrapDirectoryError(err)
	}

	return nil
}

func propertyRawValues[T any](pm *mapping.PropertyMap, instance *T) ([]string, error) {
	v := pm.Get(instance)
	if v == nil {
		return nil, nil
	}

	if !pm.Multivalued {
		s, err := pm.Converter.ToLDAP(v)
		if err != nil {
			return nil, ldaperr.Mapping("failed to convert %s: %v", pm.AttributeName, err)
		}

		return []string{s}, nil
	}

	slice, ok := v.([]any)
	if !ok {
		return nil, ldaperr.Mapping("property %s is marked multivalued but its Go value is not []any", pm.AttributeName)
	}

	out := make([]string, 0, len(slice))

	for _, e := range slice {
		s, err := pm.Converter.ToLDAP(e)
		if err != nil {
			return nil, ldaperr.Mapping("failed to convert %s: %v", pm.AttributeName, err)
		}

		out = append(out, s)
	}

	return out, nil
}

func dnOf[T any](cm *mapping.ClassMap[T], instance *T) string {
	pm, ok := cm.Properties[cm.DistinguishedNameProperty]
	if !ok {
		return ""
	}

	v := pm.Get(instance)
	s, _ := v.(string)

	return s
}

// Update sends the minimal modify request computed by tr against instance's
// current values (spec §4.4/§4.5). A nil tracker fails with
// KindUntrackedUpdate.
func Update[T any](ctx context.Context, conn Connection, tr *changetracker.Tracker[T], instance *T) error {
	if tr == nil {
		return ldaperr.UntrackedUpdate("entry was materialised without change tracking")
	}

	req, err := tr.Diff(instance)
	if err != nil {
		return err
	}

	if req == nil {
		return nil
	}

	if err := conn.Modify(req); err != nil {
		return wrapDirectoryError(err)
	}

	return nil
}

// Delete removes the entry at dn, optionally as a subtree delete
// (spec §4.4 TreeDelete control).
func Delete(ctx context.Context, conn Connection, dn string, treeDelete bool) error {
	if dn == "" {
		return ldaperr.InvalidArgument("distinguished name must not be empty")
	}

	var controls []ldap.Control
	if treeDelete {
		controls = append(controls, newTreeDeleteControl())
	}

	req := ldap.NewDelRequest(dn, controls)

	if err := conn.Del(req); err != nil {
		return wrapDirectoryError(err)
	}

	return nil
}

// ModifyDN renames and/or moves an entry (spec §4.4 MoveEntry/RenameEntry).
func ModifyDN(ctx context.Context, conn Connection, dn, newRDN, newParent string, deleteOldRDN bool) error {
	if dn == "" || newRDN == "" {
		return ldaperr.InvalidArgument("dn and newRDN must not be empty")
	}

	req := ldap.NewModifyDNRequest(dn, newRDN, deleteOldRDN, newParent)

	if err := conn.ModifyDN(req); err != nil {
		return wrapDirectoryError(err)
	}

	return nil
}

// controlTypeTreeDelete is Microsoft's subtree-delete control OID, used by
// Delete when treeDelete is requested (spec §4.4).
const controlTypeTreeDelete = "1.2.840.113556.1.4.805"

func newTreeDeleteControl() ldap.Control {
	return ldap.NewControlString(controlTypeTreeDelete, true, "")
}
