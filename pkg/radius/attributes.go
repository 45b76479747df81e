package radius

import (
	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
)

// Reply attribute keys used in failover.Outcome.Attributes.
const (
	AttrReplyMessage    = "Reply-Message"
	AttrClass           = "Class"
	AttrSessionTimeout  = "Session-Timeout"
	AttrIdleTimeout     = "Idle-Timeout"
	AttrFilterID        = "Filter-Id"
	AttrFramedIPAddress = "Framed-IP-Address"
)

// replyAttributes extracts the well-known RFC 2865 attributes from an
// Access-Accept. Absent attributes are omitted.
func replyAttributes(p *radius.Packet) map[string]any {
	attrs := make(map[string]any)

	if msgs, err := rfc2865.ReplyMessage_GetStrings(p); err == nil && len(msgs) > 0 {
		attrs[AttrReplyMessage] = msgs
	}
	if classes, err := rfc2865.Class_GetStrings(p); err == nil && len(classes) > 0 {
		attrs[AttrClass] = classes
	}
	if v, err := rfc2865.SessionTimeout_Lookup(p); err == nil {
		attrs[AttrSessionTimeout] = uint32(v)
	}
	if v, err := rfc2865.IdleTimeout_Lookup(p); err == nil {
		attrs[AttrIdleTimeout] = uint32(v)
	}
	if filters, err := rfc2865.FilterID_GetStrings(p); err == nil && len(filters) > 0 {
		attrs[AttrFilterID] = filters
	}
	if ip, err := rfc2865.FramedIPAddress_Lookup(p); err == nil {
		attrs[AttrFramedIPAddress] = ip.String()
	}

	return attrs
}
