package friendcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

type entry struct {
	jid      xmpp.JID
	friend   bool
	expireAt time.Time
}

// Store is a minimal in-memory friend-verdict cache with TTL and LRU
// eviction by entry count. Keys are bare JIDs.
type Store struct {
	mu   sync.Mutex
	data map[xmpp.JID]*list.Element
	ll   *list.List
	cap  int
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Store{
		data: make(map[xmpp.JID]*list.Element),
		ll:   list.New(),
		cap:  capacity,
	}
}

func (s *Store) Put(jid xmpp.JID, friend bool, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}

	key := jid.Bare()
	if el, ok := s.data[key]; ok {
		e := el.Value.(*entry)
		e.friend = friend
		e.expireAt = exp
		s.ll.MoveToFront(el)
	} else {
		el := s.ll.PushFront(&entry{jid: key, friend: friend, expireAt: exp})
		s.data[key] = el
	}
	s.evictIfNeeded()
}

func (s *Store) Get(jid xmpp.JID) (friend, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, hit := s.data[jid.Bare()]; hit {
		e := el.Value.(*entry)
		if !e.expireAt.IsZero() && time.Now().After(e.expireAt) {
			s.removeElement(el)
			return false, false
		}
		s.ll.MoveToFront(el)
		return e.friend, true
	}
	return false, false
}

func (s *Store) Delete(jid xmpp.JID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.data[jid.Bare()]; ok {
		s.removeElement(el)
		return true
	}
	return false
}

// Flush drops every cached verdict and returns how many were dropped.
func (s *Store) Flush() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data)
	s.data = make(map[xmpp.JID]*list.Element)
	s.ll.Init()
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *Store) evictIfNeeded() {
	for len(s.data) > s.cap && s.ll.Back() != nil {
		s.removeElement(s.ll.Back())
	}
}

func (s *Store) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.data, e.jid)
	s.ll.Remove(el)
}
