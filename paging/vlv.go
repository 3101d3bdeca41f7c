package paging

import (
	ber "github.com/go-asn1-ber/asn1-ber"
	ldap "github.com/go-ldap/ldap/v3"
)

// Virtual List View (RFC-draft draft-ietf-ldapext-ldapv3-vlv) is not one of
// go-ldap/v3's built-in controls, so the request control is hand-encoded
// here the same way the library encodes its own controls: a SEQUENCE
// wrapping the tagged fields, packed into a generic Control via OID string.
const (
	controlTypeVLVRequest  = "2.16.840.1.113730.3.4.9"
	controlTypeVLVResponse = "2.16.840.1.113730.3.4.10"
)

// ControlVLVRequest is the request control for a byOffset VLV window.
type ControlVLVRequest struct {
	BeforeCount  int
	AfterCount   int
	TargetOffset int
	ContentCount int
	ContextID    []byte
	Criticality  bool
}

// GetControlType implements ldap.Control.
func (c *ControlVLVRequest) GetControlType() string { return controlTypeVLVRequest }

// String implements ldap.Control.
func (c *ControlVLVRequest) String() string {
	return "Virtual List View Request Control"
}

// Encode implements ldap.Control, building the VirtualListViewRequest value:
//
//	VirtualListViewRequest ::= SEQUENCE {
//	    beforeCount    INTEGER,
//	    afterCount     INTEGER,
//	    target         CHOICE { byOffset [0] SEQUENCE {
//	                                 offset          INTEGER,
//	                                 contentCount    INTEGER },
//	                             ... },
//	    contextID      OCTET STRING OPTIONAL }
func (c *ControlVLVRequest) Encode() *ber.Packet {
	packet := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "Control")
	packet.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, controlTypeVLVRequest, "Control Type"))
	packet.AppendChild(ber.NewBoolean(ber.ClassUniversal, ber.TypePrimitive, ber.TagBoolean, c.Criticality, "Criticality"))

	value := ber.Encode(ber.ClassUniversal, ber.TypeConstructed, ber.TagSequence, nil, "VirtualListViewRequest")
	value.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.BeforeCount), "BeforeCount"))
	value.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.AfterCount), "AfterCount"))

	byOffset := ber.Encode(ber.ClassContext, ber.TypeConstructed, 0, nil, "ByOffset")
	byOffset.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.TargetOffset), "TargetOffset"))
	byOffset.AppendChild(ber.NewInteger(ber.ClassUniversal, ber.TypePrimitive, ber.TagInteger, int64(c.ContentCount), "ContentCount"))
	value.AppendChild(byOffset)

	if len(c.ContextID) > 0 {
		value.AppendChild(ber.NewString(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, string(c.ContextID), "ContextID"))
	}

	encodedValue := ber.Encode(ber.ClassUniversal, ber.TypePrimitive, ber.TagOctetString, value.Bytes(), "Control Value")
	packet.AppendChild(encodedValue)

	return packet
}

// VLVResponse is the decoded VirtualListViewResponse control (RFC-draft):
//
//	VirtualListViewResponse ::= SEQUENCE {
//	    targetPosition    INTEGER,
//	    contentCount      INTEGER,
//	    virtualListViewResult ENUMERATED,
//	    contextID         OCTET STRING OPTIONAL }
type VLVResponse struct {
	TargetPosition int
	ContentCount   int
	Result         int
	ContextID      []byte
}

// DecodeVLVResponse extracts the VLV response control from a search
// response's controls, if present.
func DecodeVLVResponse(controls []ldap.Control) (*VLVResponse, bool) {
	for _, c := range controls {
		if c.GetControlType() != controlTypeVLVResponse {
			continue
		}

		raw, ok := c.(*ldap.ControlString)
		if !ok {
			return nil, false
		}

		packet := ber.DecodePacket([]byte(raw.ControlValue))
		if packet == nil || len(packet.Children) < 3 {
			return nil, false
		}

		resp := &VLVResponse{
			TargetPosition: int(packet.Children[0].Value.(int64)),
			ContentCount:   int(packet.Children[1].Value.(int64)),
			Result:         int(packet.Children[2].Value.(int64)),
		}

		if len(packet.Children) > 3 {
			resp.ContextID = []byte(packet.Children[3].Value.(string))
		}

		return resp, true
	}

	return nil, false
}
