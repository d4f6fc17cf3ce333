package xmpp

import "encoding/xml"

// ProvisioningNamespace is the fixed namespace for the IoT provisioning
// control payloads carried by the stanzas below.
const ProvisioningNamespace = "urn:xmpp:iot:provisioning"

// Stanza is the unit the transport sends and delivers. Concrete types:
// *Presence, *Message, *IQ.
type Stanza interface {
	GetFrom() JID
	GetTo() JID
}

// Header carries the routing attributes common to all stanzas.
type Header struct {
	From JID    `xml:"from,attr,omitempty"`
	To   JID    `xml:"to,attr,omitempty"`
	ID   string `xml:"id,attr,omitempty"`
}

func (h Header) GetFrom() JID { return h.From }
func (h Header) GetTo() JID   { return h.To }

// PresenceType enumerates the presence stanza types relevant to
// subscription management.
type PresenceType string

const (
	PresenceSubscribe    PresenceType = "subscribe"
	PresenceSubscribed   PresenceType = "subscribed"
	PresenceUnsubscribe  PresenceType = "unsubscribe"
	PresenceUnsubscribed PresenceType = "unsubscribed"
	PresenceUnavailable  PresenceType = "unavailable"
)

type Presence struct {
	XMLName xml.Name `xml:"presence"`
	Header
	Type PresenceType `xml:"type,attr,omitempty"`
}

type Message struct {
	XMLName xml.Name `xml:"message"`
	Header
	Body string `xml:"body,omitempty"`

	// Unfriend is the provisioning payload, present only on
	// server-initiated unfriend notifications.
	Unfriend *Unfriend `xml:"unfriend,omitempty"`
}

// IQType enumerates the four IQ exchange types.
type IQType string

const (
	IQGet    IQType = "get"
	IQSet    IQType = "set"
	IQResult IQType = "result"
	IQError  IQType = "error"
)

// IQ is a correlated request/response control stanza. Exactly one
// payload field is set.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	Header
	Type IQType `xml:"type,attr"`

	IsFriend           *IsFriend           `xml:"isFriend,omitempty"`
	IsFriendResponse   *IsFriendResponse   `xml:"isFriendResponse,omitempty"`
	ClearCache         *ClearCache         `xml:"clearCache,omitempty"`
	ClearCacheResponse *ClearCacheResponse `xml:"clearCacheResponse,omitempty"`

	Error *StanzaError `xml:"error,omitempty"`
}

// Result builds the correlated result IQ for a request: id echoed,
// endpoints swapped.
func (iq *IQ) Result() *IQ {
	return &IQ{
		Header: Header{From: iq.To, To: iq.From, ID: iq.ID},
		Type:   IQResult,
	}
}

// IsFriend asks the provisioning server whether JID is a friend of the
// sending device.
type IsFriend struct {
	XMLName xml.Name `xml:"isFriend"`
	Xmlns   string   `xml:"xmlns,attr"`
	JID     JID      `xml:"jid,attr"`
}

// IsFriendResponse echoes the queried JID and carries the verdict.
type IsFriendResponse struct {
	XMLName xml.Name `xml:"isFriendResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	JID     JID      `xml:"jid,attr"`
	Result  bool     `xml:"result,attr"`
}

// Unfriend instructs the device to revoke JID's presence grant. One-way.
type Unfriend struct {
	XMLName xml.Name `xml:"unfriend"`
	Xmlns   string   `xml:"xmlns,attr"`
	JID     JID      `xml:"jid,attr"`
}

// ClearCache instructs the device to drop cached provisioning verdicts.
type ClearCache struct {
	XMLName xml.Name `xml:"clearCache"`
	Xmlns   string   `xml:"xmlns,attr"`
}

// ClearCacheResponse acknowledges a ClearCache; correlation is the IQ id.
type ClearCacheResponse struct {
	XMLName xml.Name `xml:"clearCacheResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
}

// ServiceInfo describes one entity found by service discovery.
type ServiceInfo struct {
	JID      JID
	Features []string
}
