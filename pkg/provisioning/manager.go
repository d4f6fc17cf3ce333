package provisioning

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ryandielhenn/friendgate/internal/telemetry"
	"github.com/ryandielhenn/friendgate/pkg/friendcache"
	"github.com/ryandielhenn/friendgate/pkg/registry"
	"github.com/ryandielhenn/friendgate/pkg/roster"
	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

const defaultCacheTTL = 15 * time.Minute

// Config holds the collaborators for a Manager. Transport and Roster
// are required; the rest are optional.
type Config struct {
	Transport xmpp.Transport
	Roster    roster.Roster

	// Registries answers the pre-trust shortcut. Nil disables it.
	Registries registry.Directory

	// Cache holds friend verdicts between queries and is what a
	// clearCache command flushes. Nil disables caching; clearCache is
	// then acknowledged without further effect.
	Cache *friendcache.Store

	// CacheTTL bounds how long a verdict is reused. Zero selects a
	// default of fifteen minutes.
	CacheTTL time.Duration

	// Server pins the provisioning server, skipping discovery.
	Server xmpp.JID

	// Logger is used for structured logging. If nil, logging is off.
	Logger *zap.Logger
}

// Manager is the session-scoped friendship authorization engine.
// Create exactly one per transport session; it registers its handlers
// on the transport at construction and holds no global state, so its
// lifetime is exactly the session's.
type Manager struct {
	transport xmpp.Transport
	roster    roster.Roster
	cache     *friendcache.Store
	log       *zap.Logger

	ref     *ServerReference
	gate    *OriginGate
	query   *FriendQueryClient
	arbiter *Arbiter
}

// NewManager wires the engine onto the session's transport.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Transport == nil {
		return nil, fmt.Errorf("provisioning: Transport is required")
	}
	if cfg.Roster == nil {
		return nil, fmt.Errorf("provisioning: Roster is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	m := &Manager{
		transport: cfg.Transport,
		roster:    cfg.Roster,
		cache:     cfg.Cache,
		log:       log,
	}
	m.ref = NewServerReference(cfg.Transport, log)
	if cfg.Server != "" {
		m.ref.Set(cfg.Server)
	}
	m.gate = NewOriginGate(m.ref, log)
	m.query = NewFriendQueryClient(cfg.Transport)
	m.arbiter = &Arbiter{
		registries: cfg.Registries,
		ref:        m.ref,
		query:      m.query,
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		log:        log,
	}

	m.transport.HandleMessages(m.handleMessage)
	m.transport.HandleIQ("clearCache", m.handleClearCache)
	m.transport.HandleSubscribe(m.handleSubscribe)
	return m, nil
}

// SetProvisioningServer pins the provisioning server for the rest of
// the session, replacing any discovered address.
func (m *Manager) SetProvisioningServer(jid xmpp.JID) {
	m.ref.Set(jid)
}

// ProvisioningServer returns the trusted server address, resolving it
// via discovery on first use. ok is false when none is known.
func (m *Manager) ProvisioningServer(ctx context.Context) (server xmpp.JID, ok bool, err error) {
	return m.ref.Resolve(ctx)
}

// IsFriend queries server directly for candidate's friend status,
// bypassing cache and registry shortcuts.
func (m *Manager) IsFriend(ctx context.Context, server, candidate xmpp.JID) (bool, error) {
	return m.query.IsFriend(ctx, server, candidate)
}

// DecideSubscription arbitrates a subscription request from requester.
func (m *Manager) DecideSubscription(ctx context.Context, requester xmpp.JID) Decision {
	return m.arbiter.Decide(ctx, requester)
}

// IsBefriended reports whether jid currently holds a presence grant
// from this session.
func (m *Manager) IsBefriended(jid xmpp.JID) bool {
	return m.roster.IsSubscribedToMyPresence(jid.Bare())
}

// SendFriendshipRequest asks jid for a presence subscription.
func (m *Manager) SendFriendshipRequest(jid xmpp.JID) error {
	return m.transport.Send(&xmpp.Presence{
		Header: xmpp.Header{From: m.transport.Local(), To: jid},
		Type:   xmpp.PresenceSubscribe,
	})
}

// SendFriendshipRequestIfRequired asks jid for a presence subscription
// unless this session can already see jid's presence.
func (m *Manager) SendFriendshipRequestIfRequired(jid xmpp.JID) error {
	if m.roster.CanSeePresenceOf(jid.Bare()) {
		return nil
	}
	return m.SendFriendshipRequest(jid)
}

// Unfriend revokes jid's presence grant from this side. A no-op when
// jid is not currently befriended.
func (m *Manager) Unfriend(jid xmpp.JID) error {
	return m.revokeGrant(jid.Bare())
}

// handleSubscribe adapts the arbiter's decision to the transport's
// answer channel. Defer maps to "no decision".
func (m *Manager) handleSubscribe(ctx context.Context, from xmpp.JID) xmpp.SubscribeAnswer {
	switch m.arbiter.Decide(ctx, from) {
	case Approve:
		return xmpp.SubscribeApprove
	case Deny:
		return xmpp.SubscribeDeny
	default:
		return xmpp.SubscribeNoDecision
	}
}

// handleMessage reacts to server-initiated unfriend notifications.
// Anything not from the provisioning server is dropped without reply:
// answering would leak trust-gate details to an untrusted sender.
func (m *Manager) handleMessage(ctx context.Context, msg *xmpp.Message) {
	if msg.Unfriend == nil {
		return
	}
	if !m.gate.Trusted(ctx, msg.From) {
		return
	}

	target := msg.Unfriend.JID.Bare()
	if m.cache != nil {
		m.cache.Delete(target)
	}
	if !m.roster.IsSubscribedToMyPresence(target) {
		// The server may deliver the command more than once.
		m.log.Warn("ignoring unfriend, peer is already not subscribed to our presence",
			zap.String("jid", target.String()))
		return
	}
	telemetry.CommandsTotal.WithLabelValues("unfriend").Inc()
	if err := m.revokeGrant(target); err != nil {
		m.log.Warn("could not revoke presence grant",
			zap.String("jid", target.String()), zap.Error(err))
	}
}

// handleClearCache acknowledges an authenticated clearCache command
// after flushing the verdict cache. Untrusted requests get no reply at
// all, not an error.
func (m *Manager) handleClearCache(ctx context.Context, iq *xmpp.IQ) *xmpp.IQ {
	if !m.gate.Trusted(ctx, iq.From) {
		return nil
	}
	telemetry.CommandsTotal.WithLabelValues("clearCache").Inc()
	if m.cache != nil {
		n := m.cache.Flush()
		m.log.Info("cleared friend verdict cache", zap.Int("entries", n))
	}
	resp := iq.Result()
	resp.From = m.transport.Local()
	resp.ClearCacheResponse = &xmpp.ClearCacheResponse{Xmlns: xmpp.ProvisioningNamespace}
	return resp
}

// revokeGrant emits the unsubscribed presence that revokes target's
// grant at the transport layer and records the new state. The cached
// verdict goes too: an unfriended peer must not be re-approved from a
// stale friend=true entry on its next subscription request.
func (m *Manager) revokeGrant(target xmpp.JID) error {
	if m.cache != nil {
		m.cache.Delete(target)
	}
	if !m.roster.IsSubscribedToMyPresence(target) {
		return nil
	}
	err := m.transport.Send(&xmpp.Presence{
		Header: xmpp.Header{From: m.transport.Local(), To: target},
		Type:   xmpp.PresenceUnsubscribed,
	})
	if err != nil {
		return err
	}
	m.roster.SetSubscribedToMyPresence(target, false)
	return nil
}
