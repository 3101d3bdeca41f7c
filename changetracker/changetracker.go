// Package changetracker implements per-attribute snapshot-and-diff change
// tracking for materialised entries (spec §3, §4.5). An entry is snapshotted
// by attribute name at materialisation time; Update computes a minimal
// Add/Delete/Replace modify list instead of replacing every attribute,
// using a set-difference for multivalued attributes so an unchanged value
// already present on the server is never retransmitted.
package changetracker

import (
	"sort"

	ldap "github.com/go-ldap/ldap/v3"

	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/mapping"
)

// Tracker holds the attribute-name-keyed baseline snapshot for one
// materialised *T, captured at load (or AsNoTracking-disabled) time.
type Tracker[T any] struct {
	cm       *mapping.ClassMap[T]
	baseline map[string][]string
}

// Snapshot captures instance's current mapped-attribute values as the
// baseline for future diffing.
func Snapshot[T any](cm *mapping.ClassMap[T], instance *T) (*Tracker[T], error) {
	baseline, err := captureValues(cm, instance)
	if err != nil {
		return nil, err
	}

	return &Tracker[T]{cm: cm, baseline: baseline}, nil
}

func captureValues[T any](cm *mapping.ClassMap[T], instance *T) (map[string][]string, error) {
	out := make(map[string][]string, len(cm.Properties))

	for _, name := range cm.OrderedPropertyNames() {
		pm := cm.Properties[name]
		if pm.IsDistinguishedName {
			continue
		}

		values, err := propertyValues(pm, instance)
		if err != nil {
			return nil, err
		}

		out[pm.AttributeName] = values
	}

	return out, nil
}

func propertyValues[T any](pm *mapping.PropertyMap, instance *T) ([]string, error) {
	raw := pm.Get(instance)
	if raw == nil {
		return nil, nil
	}

	if pm.Multivalued {
		slice, ok := toAnySlice(raw)
		if !ok {
			return nil, ldaperr.Mapping("property %s is marked multivalued but its Go value is not a slice", pm.AttributeName)
		}

		values := make([]string, 0, len(slice))

		for _, v := range slice {
			s, err := pm.Converter.ToLDAP(v)
			if err != nil {
				return nil, ldaperr.Mapping("failed to convert %s value for change tracking: %v", pm.AttributeName, err)
			}

			values = append(values, s)
		}

		sort.Strings(values)

		return values, nil
	}

	s, err := pm.Converter.ToLDAP(raw)
	if err != nil {
		return nil, ldaperr.Mapping("failed to convert %s value for change tracking: %v", pm.AttributeName, err)
	}

	return []string{s}, nil
}

// toAnySlice reflects a concrete []X into []any without importing reflect at
// every call site; it only needs to support the shapes property Get
// functions actually return.
func toAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}

		return out, true
	case [][]byte:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}

		return out, true
	case []int64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}

		return out, true
	default:
		return nil, false
	}
}

// Diff recomputes instance's current values and returns the minimal set of
// Add/Delete/Replace modifications against the baseline, excluding any
// property whose ReadOnly setting applies to updates and the DN property
// (spec §4.5 "read_only/DN exclusion").
func (tr *Tracker[T]) Diff(instance *T) (*ldap.ModifyRequest, error) {
	current, err := captureValues(tr.cm, instance)
	if err != nil {
		return nil, err
	}

	req := ldap.NewModifyRequest(dnOf(tr.cm, instance), nil)

	changed := false

	for _, name := range tr.cm.OrderedPropertyNames() {
		pm := tr.cm.Properties[name]
		if pm.IsDistinguishedName || isReadOnlyOnUpdate(pm.ReadOnly) {
			continue
		}

		before := tr.baseline[pm.AttributeName]
		after := current[pm.AttributeName]

		if pm.Multivalued {
			added, removed := setDifference(before, after)

			if len(removed) > 0 {
				req.Delete(pm.AttributeName, removed)

				changed = true
			}

			if len(added) > 0 {
				req.Add(pm.AttributeName, added)

				changed = true
			}

			continue
		}

		if stringSliceEqual(before, after) {
			continue
		}

		switch {
		case len(before) == 0 && len(after) > 0:
			req.Add(pm.AttributeName, after)
		case len(before) > 0 && len(after) == 0:
			req.Delete(pm.AttributeName, nil)
		default:
			req.Replace(pm.AttributeName, after)
		}

		changed = true
	}

	if !changed {
		return nil, nil
	}

	return req, nil
}

func isReadOnlyOnUpdate(r mapping.ReadOnly) bool {
	return r == mapping.ReadOnlyOnUpdate || r == mapping.ReadOnlyAlways
}

// setDifference returns the values present in after but not before (added)
// and present in before but not after (removed). Both inputs are assumed
// pre-sorted (captureValues sorts multivalued attributes).
func setDifference(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, v := range before {
		beforeSet[v] = struct{}{}
	}

	afterSet := make(map[string]struct{}, len(after))
	for _, v := range after {
		afterSet[v] = struct{}{}
	}

	for _, v := range after {
		if _, ok := beforeSet[v]; !ok {
			added = append(added, v)
		}
	}

	for _, v := range before {
		if _, ok := afterSet[v]; !ok {
			removed = append(removed, v)
		}
	}

	return added, removed
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
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
