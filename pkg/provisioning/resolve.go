package provisioning

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// ServerReference holds the session's single trusted provisioning-server
// address. It is either set explicitly by the operator or resolved once
// via service discovery on first use; a successful resolution is cached
// for the session's lifetime.
type ServerReference struct {
	transport xmpp.Transport
	log       *zap.Logger

	// mu also serializes the discovery round trip, so concurrent
	// first accesses trigger a single query.
	mu       sync.Mutex
	server   xmpp.JID
	resolved bool
}

func NewServerReference(t xmpp.Transport, log *zap.Logger) *ServerReference {
	if log == nil {
		log = zap.NewNop()
	}
	return &ServerReference{transport: t, log: log}
}

// Set pins the provisioning server explicitly. Later Resolve calls
// return it without I/O.
func (r *ServerReference) Set(jid xmpp.JID) {
	r.mu.Lock()
	r.server = jid.Bare()
	r.resolved = true
	r.mu.Unlock()
}

// Resolve returns the provisioning server address. ok is false when no
// server is known, which is a valid operating mode, not an error.
// Discovery failures leave the reference unresolved so the next access
// retries; an empty discovery result is likewise not cached.
func (r *ServerReference) Resolve(ctx context.Context) (server xmpp.JID, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return r.server, true, nil
	}

	services, err := r.transport.DiscoverServices(ctx, xmpp.ProvisioningNamespace)
	if err != nil {
		r.log.Warn("provisioning server discovery failed", zap.Error(err))
		return "", false, err
	}
	if len(services) == 0 {
		return "", false, nil
	}

	r.server = services[0].JID.Domain()
	r.resolved = true
	r.log.Info("resolved provisioning server",
		zap.String("server", r.server.String()))
	return r.server, true, nil
}
