package provisioning

import (
	"context"

	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/internal/telemetry"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// OriginGate authenticates privileged inbound stanzas by their
// transport-asserted sender identity: only the resolved provisioning
// server passes. It performs no cryptographic verification; that
// guarantee belongs to the transport.
type OriginGate struct {
	ref *ServerReference
	log *zap.Logger
}

func NewOriginGate(ref *ServerReference, log *zap.Logger) *OriginGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &OriginGate{ref: ref, log: log}
}

// Trusted reports whether from is the trusted provisioning server.
// Unresolved references and resolution errors fail closed.
func (g *OriginGate) Trusted(ctx context.Context, from xmpp.JID) bool {
	server, ok, err := g.ref.Resolve(ctx)
	if err != nil {
		g.log.Warn("ignoring stanza, provisioning server resolution failed",
			zap.String("from", from.String()), zap.Error(err))
		telemetry.RejectedStanzasTotal.WithLabelValues("resolve_failed").Inc()
		return false
	}
	if !ok {
		g.log.Warn("ignoring stanza, no provisioning server configured",
			zap.String("from", from.String()))
		telemetry.RejectedStanzasTotal.WithLabelValues("unconfigured").Inc()
		return false
	}
	if from != server {
		g.log.Warn("ignoring stanza, sender is not the provisioning server",
			zap.String("from", from.String()),
			zap.String("server", server.String()))
		telemetry.RejectedStanzasTotal.WithLabelValues("origin_mismatch").Inc()
		return false
	}
	return true
}
