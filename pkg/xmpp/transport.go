package xmpp

import (
	"context"
	"errors"
	"fmt"
)

// Transport-level failure kinds. Cancellation of a blocking exchange is
// reported as the context's error.
var (
	// ErrNoResponse means the peer did not answer within the
	// transport's timeout.
	ErrNoResponse = errors.New("xmpp: no response")

	// ErrNotConnected means the transport is not currently usable.
	ErrNotConnected = errors.New("xmpp: not connected")
)

// StanzaError is an explicit error IQ returned by the peer.
type StanzaError struct {
	Condition string `xml:"condition,attr"`
	Text      string `xml:"text,omitempty"`
}

func (e *StanzaError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("xmpp: stanza error %s: %s", e.Condition, e.Text)
	}
	return fmt.Sprintf("xmpp: stanza error %s", e.Condition)
}

// SubscribeAnswer is a subscribe handler's verdict on a presence
// subscription request.
type SubscribeAnswer int

const (
	// SubscribeNoDecision leaves the request to the transport's
	// fallback policy.
	SubscribeNoDecision SubscribeAnswer = iota
	SubscribeApprove
	SubscribeDeny
)

// SubscribeHandler decides an inbound presence subscription request.
// The transport calls it on its own worker goroutine and may cancel ctx
// when the session goes down.
type SubscribeHandler func(ctx context.Context, from JID) SubscribeAnswer

// MessageHandler receives inbound message stanzas.
type MessageHandler func(ctx context.Context, m *Message)

// IQHandler answers an inbound get/set IQ. Returning nil sends nothing,
// which silently drops the request.
type IQHandler func(ctx context.Context, iq *IQ) *IQ

// Transport is the session boundary this package's consumers program
// against. Implementations dispatch inbound stanzas concurrently, one
// worker goroutine per stanza; handlers must tolerate that.
type Transport interface {
	// Local is the session's own address.
	Local() JID

	// Send transmits a stanza without awaiting any reply.
	Send(s Stanza) error

	// SendIQ transmits a request IQ and blocks until the correlated
	// result arrives, the transport's timeout elapses (ErrNoResponse),
	// the peer answers with an error (*StanzaError), or ctx is done.
	SendIQ(ctx context.Context, iq *IQ) (*IQ, error)

	// HandleMessages registers the session's message listener.
	HandleMessages(fn MessageHandler)

	// HandleIQ registers the handler for inbound set IQs carrying the
	// named payload element.
	HandleIQ(element string, fn IQHandler)

	// HandleSubscribe registers the session's subscription decision
	// callback.
	HandleSubscribe(fn SubscribeHandler)

	// DiscoverServices finds entities advertising the given capability
	// namespace.
	DiscoverServices(ctx context.Context, namespace string) ([]ServiceInfo, error)
}
