// Package roster tracks presence subscription state for a session.
//
// It is the bookkeeping collaborator behind friendship decisions: who may
// see this session's presence, and whose presence this session may see.
// Persistence across sessions belongs to whoever owns the Roster
// implementation; the in-memory one here forgets everything on teardown.
package roster

import (
	"sync"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// Roster answers subscription-state questions by bare JID.
type Roster interface {
	// IsSubscribedToMyPresence reports whether jid currently holds a
	// presence grant from this session.
	IsSubscribedToMyPresence(jid xmpp.JID) bool

	// SetSubscribedToMyPresence records or revokes jid's grant.
	SetSubscribedToMyPresence(jid xmpp.JID, subscribed bool)

	// CanSeePresenceOf reports whether this session holds a presence
	// grant from jid.
	CanSeePresenceOf(jid xmpp.JID) bool

	// SetCanSeePresenceOf records or revokes this session's grant
	// from jid.
	SetCanSeePresenceOf(jid xmpp.JID, granted bool)
}

// Memory is an in-memory Roster, safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	toMe     map[xmpp.JID]struct{}
	fromPeer map[xmpp.JID]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		toMe:     make(map[xmpp.JID]struct{}),
		fromPeer: make(map[xmpp.JID]struct{}),
	}
}

func (m *Memory) IsSubscribedToMyPresence(jid xmpp.JID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.toMe[jid.Bare()]
	return ok
}

func (m *Memory) SetSubscribedToMyPresence(jid xmpp.JID, subscribed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subscribed {
		m.toMe[jid.Bare()] = struct{}{}
	} else {
		delete(m.toMe, jid.Bare())
	}
}

func (m *Memory) CanSeePresenceOf(jid xmpp.JID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.fromPeer[jid.Bare()]
	return ok
}

func (m *Memory) SetCanSeePresenceOf(jid xmpp.JID, granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if granted {
		m.fromPeer[jid.Bare()] = struct{}{}
	} else {
		delete(m.fromPeer, jid.Bare())
	}
}
