package provisioning

import (
	"context"
	"time"

	"github.com/ryandielhenn/friendgate/internal/telemetry"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// FriendQueryClient performs the synchronous isFriend exchange with the
// provisioning server. It does not retry; transport failures propagate
// to the caller unchanged.
type FriendQueryClient struct {
	transport xmpp.Transport
}

func NewFriendQueryClient(t xmpp.Transport) *FriendQueryClient {
	return &FriendQueryClient{transport: t}
}

// IsFriend asks server whether candidate is a friend of this device.
// It blocks until the correlated response arrives, the transport's
// timeout elapses, or ctx is done. A response echoing a different
// identity is rejected with *IdentityMismatchError rather than being
// interpreted as an answer for candidate.
func (c *FriendQueryClient) IsFriend(ctx context.Context, server, candidate xmpp.JID) (bool, error) {
	candidate = candidate.Bare()
	iq := &xmpp.IQ{
		Header: xmpp.Header{To: server},
		Type:   xmpp.IQGet,
		IsFriend: &xmpp.IsFriend{
			Xmlns: xmpp.ProvisioningNamespace,
			JID:   candidate,
		},
	}

	start := time.Now()
	resp, err := c.transport.SendIQ(ctx, iq)
	telemetry.FriendQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return false, err
	}
	answer := resp.IsFriendResponse
	if answer == nil {
		return false, ErrMalformedResponse
	}
	if answer.JID.Bare() != candidate {
		return false, &IdentityMismatchError{Requested: candidate, Answered: answer.JID.Bare()}
	}
	return answer.Result, nil
}
