package provisioning

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/internal/telemetry"
	"github.com/ryandielhenn/friendgate/pkg/friendcache"
	"github.com/ryandielhenn/friendgate/pkg/registry"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// Decision is the outcome of a subscription arbitration. The zero value
// is Defer: "no conclusive answer, let another policy layer decide",
// which is distinct from an explicit Deny.
type Decision int

const (
	Defer Decision = iota
	Approve
	Deny
)

func (d Decision) String() string {
	switch d {
	case Approve:
		return "approve"
	case Deny:
		return "deny"
	default:
		return "defer"
	}
}

// Arbiter decides inbound presence subscription requests. It consults,
// in order: the trusted-registry directory, the verdict cache, and the
// provisioning server via an isFriend query. Every uncertain branch
// yields Defer rather than Deny, so a network blip never locks a
// legitimate peer out permanently.
type Arbiter struct {
	registries registry.Directory
	ref        *ServerReference
	query      *FriendQueryClient
	cache      *friendcache.Store
	cacheTTL   time.Duration
	log        *zap.Logger
}

// Decide blocks its calling goroutine for up to the transport's
// round-trip timeout while the server is consulted. Cancelling ctx
// aborts the decision with Defer; nothing is committed on interruption.
func (a *Arbiter) Decide(ctx context.Context, requester xmpp.JID) (d Decision) {
	telemetry.InFlightDecisions.Inc()
	defer func() {
		telemetry.InFlightDecisions.Dec()
		telemetry.DecisionsTotal.WithLabelValues(d.String()).Inc()
	}()

	from := requester.Bare()

	if a.registries != nil {
		isRegistry, err := a.registries.IsRegistry(ctx, from)
		if err != nil {
			// Treated as "not a registry", never as fatal.
			a.log.Warn("could not determine if requester is a registry",
				zap.String("from", from.String()), zap.Error(err))
		} else if isRegistry {
			return Approve
		}
	}

	if a.cache != nil {
		if friend, ok := a.cache.Get(from); ok {
			telemetry.CacheHitsTotal.WithLabelValues("hit").Inc()
			if friend {
				return Approve
			}
			return Deny
		}
		telemetry.CacheHitsTotal.WithLabelValues("miss").Inc()
	}

	server, ok, err := a.ref.Resolve(ctx)
	if err != nil {
		a.log.Warn("could not determine provisioning server, ignoring friend request",
			zap.String("from", from.String()), zap.Error(err))
		return Defer
	}
	if !ok {
		a.log.Warn("no provisioning server known, ignoring friend request",
			zap.String("from", from.String()))
		return Defer
	}

	friend, err := a.query.IsFriend(ctx, server, from)
	if err != nil {
		a.log.Warn("could not determine friendship, deferring",
			zap.String("from", from.String()),
			zap.String("server", server.String()),
			zap.Error(err))
		return Defer
	}

	if a.cache != nil {
		a.cache.Put(from, friend, a.cacheTTL)
	}
	if friend {
		return Approve
	}
	return Deny
}
