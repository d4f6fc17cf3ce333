// Package registry answers whether a peer is trusted provisioning
// infrastructure. Registries bypass the friend query entirely: their
// subscription requests are approved outright.
package registry

import (
	"context"
	"sync"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// RegistryNamespace is the capability namespace a registry advertises.
const RegistryNamespace = "urn:xmpp:iot:discovery"

// Directory reports registry membership for a bare JID. Errors mean
// "could not determine", which callers treat as "not a registry".
type Directory interface {
	IsRegistry(ctx context.Context, jid xmpp.JID) (bool, error)
}

// StaticSet is a concurrent set of registry addresses, fed by operator
// configuration or a discovery watcher.
type StaticSet struct {
	mu   sync.RWMutex
	jids map[xmpp.JID]struct{}
}

func NewStaticSet(jids ...xmpp.JID) *StaticSet {
	s := &StaticSet{jids: make(map[xmpp.JID]struct{}, len(jids))}
	for _, j := range jids {
		s.jids[j.Bare()] = struct{}{}
	}
	return s
}

func (s *StaticSet) Add(jid xmpp.JID) {
	s.mu.Lock()
	s.jids[jid.Bare()] = struct{}{}
	s.mu.Unlock()
}

func (s *StaticSet) Remove(jid xmpp.JID) {
	s.mu.Lock()
	delete(s.jids, jid.Bare())
	s.mu.Unlock()
}

func (s *StaticSet) Contains(jid xmpp.JID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jids[jid.Bare()]
	return ok
}

// Replace swaps the whole set, used by watchers pushing a fresh view.
func (s *StaticSet) Replace(jids []xmpp.JID) {
	next := make(map[xmpp.JID]struct{}, len(jids))
	for _, j := range jids {
		next[j.Bare()] = struct{}{}
	}
	s.mu.Lock()
	s.jids = next
	s.mu.Unlock()
}

func (s *StaticSet) IsRegistry(_ context.Context, jid xmpp.JID) (bool, error) {
	return s.Contains(jid), nil
}

// DiscoDirectory determines registry membership by asking the transport
// whether the peer's domain advertises the registry capability. Positive
// answers are memoized; negatives are re-asked, since a registry may
// come up after the session does.
type DiscoDirectory struct {
	transport xmpp.Transport

	mu    sync.RWMutex
	known map[xmpp.JID]struct{}
}

func NewDiscoDirectory(t xmpp.Transport) *DiscoDirectory {
	return &DiscoDirectory{transport: t, known: make(map[xmpp.JID]struct{})}
}

func (d *DiscoDirectory) IsRegistry(ctx context.Context, jid xmpp.JID) (bool, error) {
	bare := jid.Bare()
	d.mu.RLock()
	_, hit := d.known[bare]
	d.mu.RUnlock()
	if hit {
		return true, nil
	}

	services, err := d.transport.DiscoverServices(ctx, RegistryNamespace)
	if err != nil {
		return false, err
	}
	found := false
	d.mu.Lock()
	for _, svc := range services {
		d.known[svc.JID.Bare()] = struct{}{}
		if svc.JID.Bare() == bare {
			found = true
		}
	}
	d.mu.Unlock()
	return found, nil
}
