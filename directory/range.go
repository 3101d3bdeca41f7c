package directory

import (
	"context"
	"fmt"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/ldaperr"
)

// RetrieveRangesContext reads every value of a ranged attribute (e.g.
// member;range=0-1499) off dn by repeating the search with successive
// ;range= suffixes until the server signals the final chunk with "*"
// (spec §4.4 RangeRetrieval, the AD "ranged attribute retrieval" extension).
func RetrieveRangesContext[V any](ctx context.Context, dc *Context, dn, attributeName string, chunkSize int, convertValue func(raw string) (V, error)) ([]V, error) {
	if err := dc.enter(); err != nil {
		return nil, err
	}
	defer dc.leave()

	if chunkSize <= 0 {
		chunkSize = 1500
	}

	var (
		out   []V
		start = 0
	)

	for {
		rangedName := fmt.Sprintf("%s;range=%d-%d", attributeName, start, start+chunkSize-1)

		req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject, ldap.DerefAlways, 0, 0, false, "(objectClass=*)", []string{rangedName}, nil)

		res, err := dc.conn.SearchContext(ctx, req)
		if err != nil {
			return nil, wrapErr(err)
		}

		if len(res.Entries) == 0 {
			return out, nil
		}

		attr, final, found := findRangedAttribute(res.Entries[0], attributeName)
		if !found {
			return out, nil
		}

		for _, raw := range attr.Values {
			v, err := convertValue(raw)
			if err != nil {
				return nil, ldaperr.Mapping("failed to convert ranged value of %s: %v", attributeName, err)
			}

			out = append(out, v)
		}

		if final {
			return out, nil
		}

		start += chunkSize
	}
}

// RetrieveRanges is the non-context convenience form.
func RetrieveRanges[V any](dc *Context, dn, attributeName string, chunkSize int, convertValue func(raw string) (V, error)) ([]V, error) {
	return RetrieveRangesContext[V](context.Background(), dc, dn, attributeName, chunkSize, convertValue)
}

// findRangedAttribute locates the ;range=... variant of attributeName on
// entry and reports whether its upper bound was "*" (the final chunk).
func findRangedAttribute(entry *ldap.Entry, attributeName string) (*ldap.EntryAttribute, bool, bool) {
	prefix := strings.ToLower(attributeName) + ";range="

	for _, a := range entry.Attributes {
		name := strings.ToLower(a.Name)
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		bounds := strings.TrimPrefix(name, prefix)

		parts := strings.SplitN(bounds, "-", 2)
		if len(parts) != 2 {
			continue
		}

		return a, parts[1] == "*", true
	}

	return nil, false, false
}

// ListServerAttributesContext retrieves the full set of attribute names
// present on dn, without requiring a class map (spec §4.4
// ListServerAttributes).
func ListServerAttributesContext(ctx context.Context, dc *Context, dn string) ([]string, error) {
	if err := dc.enter(); err != nil {
		return nil, err
	}
	defer dc.leave()

	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject, ldap.DerefAlways, 0, 0, false, "(objectClass=*)", []string{"*", "+"}, nil)

	res, err := dc.conn.SearchContext(ctx, req)
	if err != nil {
		return nil, wrapErr(err)
	}

	if len(res.Entries) == 0 {
		return nil, ldaperr.NoResult("no entry found at dn %s", dn)
	}

	names := make([]string, 0, len(res.Entries[0].Attributes))
	for _, a := range res.Entries[0].Attributes {
		names = append(names, a.Name)
	}

	return names, nil
}

// ListServerAttributes is the non-context convenience form.
func ListServerAttributes(dc *Context, dn string) ([]string, error) {
	return ListServerAttributesContext(context.Background(), dc, dn)
}

// SendRequestContext passes a caller-built raw request straight to the wire
// connection, for operations the mapped API does not model directly (spec
// §4.4 SendRequest).
func SendRequestContext(ctx context.Context, dc *Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if err := dc.enter(); err != nil {
		return nil, err
	}
	defer dc.leave()

	res, err := dc.conn.SearchContext(ctx, req)
	if err != nil {
		return nil, wrapErr(err)
	}

	return res, nil
}

// SendRequest is the non-context convenience form.
func SendRequest(dc *Context, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	return SendRequestContext(context.Background(), dc, req)
}

func wrapErr(err error) error {
	if ldapErr, ok := err.(*ldap.Error); ok {
		return ldaperr.DirectoryOperation(uint16(ldapErr.ResultCode), "", ldapErr.Error())
	}

	return ldaperr.Connection(err)
}
