// Package testsupport provides an in-memory fake directory.DirectoryConnection
// for unit tests. It stands in for the teacher's Docker/testcontainers-backed
// LDAPTestSuite (pkg/testutil), which this environment cannot run; see
// DESIGN.md for that substitution's rationale. Filter evaluation walks the
// same BER packet tree go-ldap's own ldap.CompileFilter produces, so test
// filters exercise the real RFC 4515 grammar instead of a simplified one.
package testsupport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	ber "github.com/go-asn1-ber/asn1-ber"
	ldap "github.com/go-ldap/ldap/v3"
)

// filter packet tags per RFC 4515's ASN.1 Filter CHOICE, used directly since
// go-ldap keeps its own copies of these unexported.
const (
	filterAnd             = 0
	filterOr              = 1
	filterNot             = 2
	filterEqualityMatch   = 3
	filterSubstrings      = 4
	filterGreaterOrEqual  = 5
	filterLessOrEqual     = 6
	filterPresent         = 7
	filterApproxMatch     = 8
	filterExtensibleMatch = 9
)

// storedEntry is one DN's attribute set, stored with case-preserved but
// case-insensitively looked-up attribute names (per LDAP attribute-name
// semantics).
type storedEntry struct {
	dn    string
	attrs map[string][]string
}

// FakeConnection is an in-memory LDAP directory satisfying
// directory.DirectoryConnection and command.Connection.
type FakeConnection struct {
	mu      sync.Mutex
	entries map[string]*storedEntry // keyed by lowercased DN
}

// New returns an empty FakeConnection.
func New() *FakeConnection {
	return &FakeConnection{entries: make(map[string]*storedEntry)}
}

// Seed inserts an entry directly, bypassing Add's validation, for test setup.
func (f *FakeConnection) Seed(dn string, attrs map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[strings.ToLower(dn)] = &storedEntry{dn: dn, attrs: cloneAttrs(attrs)}
}

func cloneAttrs(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}

	return out
}

// SearchContext implements command.Connection.
func (f *FakeConnection) SearchContext(_ context.Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	packet, err := ldap.CompileFilter(req.Filter)
	if err != nil {
		return nil, &ldap.Error{ResultCode: ldap.LDAPResultFilterErrorOriginalFilterMustBeSet, Err: err}
	}

	var candidates []*storedEntry

	switch req.Scope {
	case ldap.ScopeBaseObject:
		if e, ok := f.entries[strings.ToLower(req.BaseDN)]; ok {
			candidates = append(candidates, e)
		}
	default:
		for _, e := range f.entries {
			if req.Scope == ldap.ScopeSingleLevel && !isDirectChild(e.dn, req.BaseDN) {
				continue
			}

			if req.Scope == ldap.ScopeWholeSubtree && !isUnder(e.dn, req.BaseDN) {
				continue
			}

			candidates = append(candidates, e)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dn < candidates[j].dn })

	var entries []*ldap.Entry

	for _, e := range candidates {
		if matchFilter(packet, e.attrs) {
			entries = append(entries, toLDAPEntry(e, req.Attributes))
		}
	}

	if req.SizeLimit > 0 && len(entries) > req.SizeLimit {
		entries = entries[:req.SizeLimit]

		return &ldap.SearchResult{Entries: entries}, &ldap.Error{ResultCode: ldap.LDAPResultSizeLimitExceeded}
	}

	return &ldap.SearchResult{Entries: entries}, nil
}

func isDirectChild(dn, base string) bool {
	if !isUnder(dn, base) {
		return false
	}

	rest := strings.TrimSuffix(dn, ","+base)

	return !strings.Contains(rest, ",")
}

func isUnder(dn, base string) bool {
	if strings.EqualFold(dn, base) {
		return true
	}

	return strings.HasSuffix(strings.ToLower(dn), ","+strings.ToLower(base))
}

func toLDAPEntry(e *storedEntry, requested []string) *ldap.Entry {
	names := requested
	if len(names) == 0 {
		for name := range e.attrs {
			names = append(names, name)
		}

		sort.Strings(names)
	}

	var out []*ldap.EntryAttribute

	for _, name := range names {
		if name == "*" || name == "+" || name == "1.1" {
			continue
		}

		if storedName, values, ok := lookupRangedAttr(e.attrs, name); ok {
			out = append(out, &ldap.EntryAttribute{Name: storedName, Values: values})

			continue
		}

		values, ok := lookupAttr(e.attrs, name)
		if !ok {
			continue
		}

		out = append(out, &ldap.EntryAttribute{Name: name, Values: values})
	}

	return &ldap.Entry{DN: e.dn, Attributes: out}
}

// lookupRangedAttr simulates an AD-style ranged attribute server response: a
// client asks for "member;range=3-5" and the server replies under whatever
// upper bound it chooses (possibly "member;range=3-*" if fewer values
// remain), so matching is done on the "name;range=start-" prefix rather than
// an exact name.
func lookupRangedAttr(attrs map[string][]string, requestedName string) (string, []string, bool) {
	idx := strings.Index(requestedName, ";range=")
	if idx < 0 {
		return "", nil, false
	}

	base := requestedName[:idx]
	bounds := requestedName[idx+len(";range="):]

	dash := strings.Index(bounds, "-")
	if dash < 0 {
		return "", nil, false
	}

	requestedStart := bounds[:dash]
	prefix := strings.ToLower(base) + ";range=" + requestedStart + "-"

	for k, v := range attrs {
		if strings.HasPrefix(strings.ToLower(k), prefix) {
			return k, v, true
		}
	}

	return "", nil, false
}

func lookupAttr(attrs map[string][]string, name string) ([]string, bool) {
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}

	return nil, false
}

func matchFilter(packet *ber.Packet, attrs map[string][]string) bool {
	switch packet.Tag {
	case filterAnd:
		for _, child := range packet.Children {
			if !matchFilter(child, attrs) {
				return false
			}
		}

		return true

	case filterOr:
		for _, child := range packet.Children {
			if matchFilter(child, attrs) {
				return true
			}
		}

		return len(packet.Children) == 0

	case filterNot:
		return len(packet.Children) == 1 && !matchFilter(packet.Children[0], attrs)

	case filterEqualityMatch:
		name, value := attrNameValue(packet)
		values, ok := lookupAttr(attrs, name)

		return ok && containsFold(values, value)

	case filterPresent:
		// Every directory entry carries objectClass, so (objectClass=*)
		// matches any entry, including ones seeded without it.
		if strings.EqualFold(packet.Data.String(), "objectClass") {
			return true
		}

		_, ok := lookupAttr(attrs, packet.Data.String())

		return ok

	case filterGreaterOrEqual:
		name, value := attrNameValue(packet)
		values, ok := lookupAttr(attrs, name)

		return ok && anyMatch(values, func(v string) bool { return v >= value })

	case filterLessOrEqual:
		name, value := attrNameValue(packet)
		values, ok := lookupAttr(attrs, name)

		return ok && anyMatch(values, func(v string) bool { return v <= value })

	case filterSubstrings:
		return matchSubstrings(packet, attrs)

	case filterApproxMatch:
		name, value := attrNameValue(packet)
		values, ok := lookupAttr(attrs, name)

		return ok && containsFold(values, value)

	case filterExtensibleMatch:
		// Bitwise and other extensible matches are not evaluated by the fake;
		// treat as non-matching so tests exercising this path use a real
		// server or assert on the request shape instead of the result.
		return false

	default:
		return false
	}
}

func attrNameValue(packet *ber.Packet) (string, string) {
	if len(packet.Children) < 2 {
		return "", ""
	}

	return packet.Children[0].Data.String(), packet.Children[1].Data.String()
}

func matchSubstrings(packet *ber.Packet, attrs map[string][]string) bool {
	if len(packet.Children) < 2 {
		return false
	}

	name := packet.Children[0].Data.String()
	values, ok := lookupAttr(attrs, name)

	if !ok {
		return false
	}

	var prefix, suffix string

	var contains []string

	for _, part := range packet.Children[1].Children {
		switch part.Tag {
		case 0:
			prefix = part.Data.String()
		case 1:
			contains = append(contains, part.Data.String())
		case 2:
			suffix = part.Data.String()
		}
	}

	return anyMatch(values, func(v string) bool {
		lv := strings.ToLower(v)
		if prefix != "" && !strings.HasPrefix(lv, strings.ToLower(prefix)) {
			return false
		}

		if suffix != "" && !strings.HasSuffix(lv, strings.ToLower(suffix)) {
			return false
		}

		for _, c := range contains {
			if !strings.Contains(lv, strings.ToLower(c)) {
				return false
			}
		}

		return true
	})
}

func containsFold(values []string, target string) bool {
	return anyMatch(values, func(v string) bool { return strings.EqualFold(v, target) })
}

func anyMatch(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}

	return false
}

// Add implements command.Connection.
func (f *FakeConnection) Add(req *ldap.AddRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(req.DN)
	if _, exists := f.entries[key]; exists {
		return &ldap.Error{ResultCode: ldap.LDAPResultEntryAlreadyExists, Err: fmt.Errorf("entry %s already exists", req.DN)}
	}

	attrs := make(map[string][]string, len(req.Attributes))
	for _, a := range req.Attributes {
		attrs[a.Type] = append([]string(nil), a.Vals...)
	}

	f.entries[key] = &storedEntry{dn: req.DN, attrs: attrs}

	return nil
}

// Modify implements command.Connection.
func (f *FakeConnection) Modify(req *ldap.ModifyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[strings.ToLower(req.DN)]
	if !ok {
		return &ldap.Error{ResultCode: ldap.LDAPResultNoSuchObject}
	}

	for _, change := range req.Changes {
		applyChange(e, change)
	}

	return nil
}

func applyChange(e *storedEntry, change ldap.Change) {
	name, ok := lookupAttrName(e.attrs, change.Modification.Type)
	if !ok {
		name = change.Modification.Type
	}

	switch change.Operation {
	case ldap.AddAttribute:
		e.attrs[name] = append(e.attrs[name], change.Modification.Vals...)
	case ldap.DeleteAttribute:
		if len(change.Modification.Vals) == 0 {
			delete(e.attrs, name)

			return
		}

		e.attrs[name] = removeValues(e.attrs[name], change.Modification.Vals)
	case ldap.ReplaceAttribute:
		if len(change.Modification.Vals) == 0 {
			delete(e.attrs, name)

			return
		}

		e.attrs[name] = append([]string(nil), change.Modification.Vals...)
	}
}

func lookupAttrName(attrs map[string][]string, name string) (string, bool) {
	for k := range attrs {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}

	return "", false
}

func removeValues(values, remove []string) []string {
	out := values[:0:0]

	for _, v := range values {
		if !containsFold(remove, v) {
			out = append(out, v)
		}
	}

	return out
}

// Del implements command.Connection.
func (f *FakeConnection) Del(req *ldap.DelRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(req.DN)
	if _, ok := f.entries[key]; !ok {
		return &ldap.Error{ResultCode: ldap.LDAPResultNoSuchObject}
	}

	delete(f.entries, key)

	return nil
}

// ModifyDN implements command.Connection.
func (f *FakeConnection) ModifyDN(req *ldap.ModifyDNRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.ToLower(req.DN)

	e, ok := f.entries[key]
	if !ok {
		return &ldap.Error{ResultCode: ldap.LDAPResultNoSuchObject}
	}

	parent := req.NewSuperior
	if parent == "" {
		parent = parentDN(e.dn)
	}

	newDN := req.NewRDN
	if parent != "" {
		newDN = req.NewRDN + "," + parent
	}

	delete(f.entries, key)
	e.dn = newDN
	f.entries[strings.ToLower(newDN)] = e

	return nil
}

func parentDN(dn string) string {
	for i := 0; i < len(dn); i++ {
		if dn[i] == ',' && (i == 0 || dn[i-1] != '\\') {
			return dn[i+1:]
		}
	}

	return ""
}

// WhoAmI implements directory.DirectoryConnection; the fake always reports
// an authenticated identity.
func (f *FakeConnection) WhoAmI(_ []ldap.Control) (*ldap.WhoAmIResult, error) {
	return &ldap.WhoAmIResult{AuthzID: "u:fake"}, nil
}

// Close implements directory.DirectoryConnection.
func (f *FakeConnection) Close() error { return nil }
