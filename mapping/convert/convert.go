// Package convert implements the bidirectional conversion between raw LDAP
// attribute values (UTF-8 byte strings, or raw bytes for binary syntaxes)
// and typed Go values (spec §3 PropertyMap.converter). The AD-specific
// syntaxes (objectGUID, objectSid) are grounded directly on the teacher's
// StringAttrValuesToRequestedType switch, generalised into reusable
// converters instead of one inline switch per call site.
package convert

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	objectsid "github.com/bwmarrin/go-objectsid"
	"github.com/google/uuid"
)

// Converter is the bidirectional bridge between a single raw LDAP value
// (string form, plus its raw bytes for binary-syntax attributes) and one
// typed Go value.
type Converter interface {
	// FromLDAP parses a raw attribute value into a typed Go value.
	FromLDAP(raw string, rawBytes []byte) (any, error)
	// ToLDAP formats a typed Go value back into the string LDAP expects on
	// the wire for add/modify requests and for filter value construction.
	ToLDAP(value any) (string, error)
}

type stringConverter struct{}

// String converts the attribute as-is.
func String() Converter { return stringConverter{} }

func (stringConverter) FromLDAP(raw string, _ []byte) (any, error) { return raw, nil }
func (stringConverter) ToLDAP(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("convert: expected string, got %T", value)
	}

	return s, nil
}

type intConverter struct{}

// Int converts the attribute to/from a Go int64.
func Int() Converter { return intConverter{} }

func (intConverter) FromLDAP(raw string, _ []byte) (any, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func (intConverter) ToLDAP(value any) (string, error) {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("convert: expected int/int64, got %T", value)
	}
}

type boolConverter struct{}

// Bool converts "TRUE"/"FALSE" (the RFC 4517 boolean syntax) to/from bool.
func Bool() Converter { return boolConverter{} }

func (boolConverter) FromLDAP(raw string, _ []byte) (any, error) {
	switch raw {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return nil, fmt.Errorf("convert: invalid LDAP boolean %q", raw)
	}
}

func (boolConverter) ToLDAP(value any) (string, error) {
	b, ok := value.(bool)
	if !ok {
		return "", fmt.Errorf("convert: expected bool, got %T", value)
	}

	if b {
		return "TRUE", nil
	}

	return "FALSE", nil
}

type bytesConverter struct{}

// Bytes converts a binary attribute to/from a raw []byte, with no textual
// interpretation. ToLDAP returns the bytes unchanged as a Go string; filter
// construction hex-escapes them byte by byte when the property is AsBinary.
func Bytes() Converter { return bytesConverter{} }

func (bytesConverter) FromLDAP(_ string, rawBytes []byte) (any, error) {
	out := make([]byte, len(rawBytes))
	copy(out, rawBytes)

	return out, nil
}

func (bytesConverter) ToLDAP(value any) (string, error) {
	b, ok := value.([]byte)
	if !ok {
		return "", fmt.Errorf("convert: expected []byte, got %T", value)
	}

	return string(b), nil
}

// GeneralizedTime converts an attribute formatted/parsed as RFC 4517
// generalized-time using the named pattern (spec §3 PropertyMap.date_time_format).
func GeneralizedTime(layout string) Converter { return generalizedTimeConverter{layout: layout} }

type generalizedTimeConverter struct{ layout string }

func (c generalizedTimeConverter) FromLDAP(raw string, _ []byte) (any, error) {
	return time.Parse(c.layout, raw)
}

func (c generalizedTimeConverter) ToLDAP(value any) (string, error) {
	t, ok := value.(time.Time)
	if !ok {
		return "", fmt.Errorf("convert: expected time.Time, got %T", value)
	}

	return t.Format(c.layout), nil
}

// FileTime converts an attribute stored as a Windows FILETIME integer
// (100-nanosecond intervals since 1601-01-01) to/from time.Time; this is the
// "otherwise" branch of spec §3's date_time_format rule (no pattern ->
// FILETIME).
func FileTime() Converter { return fileTimeConverter{} }

type fileTimeConverter struct{}

const fileTimeEpochDeltaSeconds = 11644473600 // seconds between 1601-01-01 and 1970-01-01

func (fileTimeConverter) FromLDAP(raw string, _ []byte) (any, error) {
	ticks, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}

	seconds := ticks/1e7 - fileTimeEpochDeltaSeconds
	nanos := (ticks % 1e7) * 100

	return time.Unix(seconds, nanos).UTC(), nil
}

func (fileTimeConverter) ToLDAP(value any) (string, error) {
	t, ok := value.(time.Time)
	if !ok {
		return "", fmt.Errorf("convert: expected time.Time, got %T", value)
	}

	ticks := (t.Unix()+fileTimeEpochDeltaSeconds)*1e7 + int64(t.Nanosecond())/100

	return strconv.FormatInt(ticks, 10), nil
}

// EnumAsInt converts an attribute stored as an integer string to/from an
// enum-like int value using the supplied lookup tables (spec §3
// PropertyMap.enum_stored_as_int).
func EnumAsInt(toName map[int64]string, toValue map[string]int64) Converter {
	return enumConverter{toName: toName, toValue: toValue}
}

type enumConverter struct {
	toName  map[int64]string
	toValue map[string]int64
}

func (c enumConverter) FromLDAP(raw string, _ []byte) (any, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}

	if name, ok := c.toName[n]; ok {
		return name, nil
	}

	return n, nil
}

func (c enumConverter) ToLDAP(value any) (string, error) {
	switch v := value.(type) {
	case string:
		n, ok := c.toValue[v]
		if !ok {
			return "", fmt.Errorf("convert: unknown enum value %q", v)
		}

		return strconv.FormatInt(n, 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("convert: expected string/int64, got %T", value)
	}
}

// GUID converts the AD objectGUID binary syntax to/from a canonical UUID
// string, grounded on the teacher's uuid.Parse(hex.EncodeToString(...)) use
// in StringAttrValuesToRequestedType.
func GUID() Converter { return guidConverter{} }

type guidConverter struct{}

func (guidConverter) FromLDAP(_ string, rawBytes []byte) (any, error) {
	id, err := uuid.Parse(hex.EncodeToString(rawBytes))
	if err != nil {
		return nil, fmt.Errorf("convert: invalid objectGUID: %w", err)
	}

	return id.String(), nil
}

func (guidConverter) ToLDAP(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("convert: expected string, got %T", value)
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("convert: invalid uuid %q: %w", s, err)
	}

	raw, err := id.MarshalBinary()
	if err != nil {
		return "", err
	}

	return "\\" + hex.EncodeToString(raw), nil
}

// SID converts the AD objectSid/SIDHistory binary syntax to/from its
// canonical "S-1-5-..." string form, grounded on the teacher's
// objectsid.Decode(attr.ByteValues[0]) use.
func SID() Converter { return sidConverter{} }

type sidConverter struct{}

func (sidConverter) FromLDAP(_ string, rawBytes []byte) (any, error) {
	if len(rawBytes) < 8 {
		return nil, fmt.Errorf("convert: objectSid value too short to decode")
	}

	sid := objectsid.Decode(rawBytes)

	return sid.String(), nil
}

// ToLDAP is not supported: the teacher's go-objectsid library only decodes,
// it does not encode a SID string back into its binary wire form, and AD
// never accepts objectSid as a caller-supplied attribute on add/modify.
func (sidConverter) ToLDAP(any) (string, error) {
	return "", fmt.Errorf("convert: objectSid is not writable")
}

// PutUint32LE is a small helper used by callers constructing raw SID/GUID
// byte layouts in tests.
func PutUint32LE(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
