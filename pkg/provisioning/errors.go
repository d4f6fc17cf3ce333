package provisioning

import (
	"errors"
	"fmt"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// ErrMalformedResponse means the provisioning server answered an
// isFriend query without the expected payload.
var ErrMalformedResponse = errors.New("provisioning: malformed isFriend response")

// IdentityMismatchError means an isFriend response echoed a different
// identity than the one queried. A correct server never does this, so
// the answer cannot be trusted for either identity.
type IdentityMismatchError struct {
	Requested xmpp.JID
	Answered  xmpp.JID
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("provisioning: isFriend response for %q does not match query for %q",
		e.Answered, e.Requested)
}
