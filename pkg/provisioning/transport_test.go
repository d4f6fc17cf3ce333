package provisioning

import (
	"context"
	"sync"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

// fakeTransport scripts the transport boundary for the engine tests.
// Inbound stanzas are injected by calling the registered handlers
// directly, the way a real transport's dispatch workers would.
type fakeTransport struct {
	local xmpp.JID

	mu            sync.Mutex
	sent          []xmpp.Stanza
	sendErr       error
	iqFn          func(ctx context.Context, iq *xmpp.IQ) (*xmpp.IQ, error)
	iqCalls       int
	discoverFn    func(ctx context.Context, ns string) ([]xmpp.ServiceInfo, error)
	discoverCalls int

	msgHandler xmpp.MessageHandler
	iqHandlers map[string]xmpp.IQHandler
	subHandler xmpp.SubscribeHandler
}

func newFakeTransport(local xmpp.JID) *fakeTransport {
	return &fakeTransport{local: local, iqHandlers: make(map[string]xmpp.IQHandler)}
}

func (f *fakeTransport) Local() xmpp.JID { return f.local }

func (f *fakeTransport) Send(s xmpp.Stanza) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeTransport) SendIQ(ctx context.Context, iq *xmpp.IQ) (*xmpp.IQ, error) {
	f.mu.Lock()
	f.iqCalls++
	fn := f.iqFn
	f.mu.Unlock()
	if fn == nil {
		return nil, xmpp.ErrNotConnected
	}
	return fn(ctx, iq)
}

func (f *fakeTransport) HandleMessages(fn xmpp.MessageHandler) {
	f.mu.Lock()
	f.msgHandler = fn
	f.mu.Unlock()
}

func (f *fakeTransport) HandleIQ(element string, fn xmpp.IQHandler) {
	f.mu.Lock()
	f.iqHandlers[element] = fn
	f.mu.Unlock()
}

func (f *fakeTransport) HandleSubscribe(fn xmpp.SubscribeHandler) {
	f.mu.Lock()
	f.subHandler = fn
	f.mu.Unlock()
}

func (f *fakeTransport) DiscoverServices(ctx context.Context, ns string) ([]xmpp.ServiceInfo, error) {
	f.mu.Lock()
	f.discoverCalls++
	fn := f.discoverFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, ns)
}

// sentPresences filters the recorded stanzas.
func (f *fakeTransport) sentPresences() []*xmpp.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*xmpp.Presence
	for _, s := range f.sent {
		if p, ok := s.(*xmpp.Presence); ok {
			out = append(out, p)
		}
	}
	return out
}

// deliverMessage injects an inbound message through the registered
// listener, as the transport would on a fresh worker goroutine.
func (f *fakeTransport) deliverMessage(ctx context.Context, m *xmpp.Message) {
	f.mu.Lock()
	h := f.msgHandler
	f.mu.Unlock()
	if h != nil {
		h(ctx, m)
	}
}

func (f *fakeTransport) deliverIQ(ctx context.Context, iq *xmpp.IQ) *xmpp.IQ {
	f.mu.Lock()
	var h xmpp.IQHandler
	if iq.ClearCache != nil {
		h = f.iqHandlers["clearCache"]
	} else if iq.IsFriend != nil {
		h = f.iqHandlers["isFriend"]
	}
	f.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(ctx, iq)
}

func (f *fakeTransport) deliverSubscribe(ctx context.Context, from xmpp.JID) xmpp.SubscribeAnswer {
	f.mu.Lock()
	h := f.subHandler
	f.mu.Unlock()
	if h == nil {
		return xmpp.SubscribeNoDecision
	}
	return h(ctx, from)
}

// answerIsFriend scripts a well-behaved provisioning server.
func answerIsFriend(result func(candidate xmpp.JID) bool) func(context.Context, *xmpp.IQ) (*xmpp.IQ, error) {
	return func(_ context.Context, iq *xmpp.IQ) (*xmpp.IQ, error) {
		resp := iq.Result()
		resp.IsFriendResponse = &xmpp.IsFriendResponse{
			Xmlns:  xmpp.ProvisioningNamespace,
			JID:    iq.IsFriend.JID,
			Result: result(iq.IsFriend.JID),
		}
		return resp, nil
	}
}
