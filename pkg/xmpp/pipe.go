package xmpp

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultPipeTimeout = 5 * time.Second

// Pipe is an in-process Transport: two ends connected by direct
// dispatch, each delivery on its own goroutine. It exists for tests and
// benchmarks; production sessions attach a real connection instead.
type Pipe struct {
	local JID
	peer  *Pipe

	mu         sync.Mutex
	closed     bool
	nextID     uint64
	pending    map[string]chan *IQ
	msgHandler MessageHandler
	subHandler SubscribeHandler
	prsHandler func(*Presence)
	iqHandlers map[string]IQHandler
	services   []ServiceInfo

	timeout time.Duration
}

// NewPipe returns two connected ends with the given local addresses.
func NewPipe(a, b JID) (*Pipe, *Pipe) {
	pa := &Pipe{local: a, pending: make(map[string]chan *IQ), iqHandlers: make(map[string]IQHandler), timeout: defaultPipeTimeout}
	pb := &Pipe{local: b, pending: make(map[string]chan *IQ), iqHandlers: make(map[string]IQHandler), timeout: defaultPipeTimeout}
	pa.peer = pb
	pb.peer = pa
	return pa, pb
}

func (p *Pipe) Local() JID { return p.local }

// SetTimeout overrides the reply timeout for SendIQ.
func (p *Pipe) SetTimeout(d time.Duration) {
	p.mu.Lock()
	p.timeout = d
	p.mu.Unlock()
}

// Advertise makes this end discoverable by the peer's DiscoverServices.
func (p *Pipe) Advertise(info ServiceInfo) {
	p.mu.Lock()
	p.services = append(p.services, info)
	p.mu.Unlock()
}

// Close tears the end down; further sends fail with ErrNotConnected and
// outstanding SendIQ calls are released.
func (p *Pipe) Close() {
	p.mu.Lock()
	p.closed = true
	for id, ch := range p.pending {
		close(ch)
		delete(p.pending, id)
	}
	p.mu.Unlock()
}

func (p *Pipe) Send(s Stanza) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrNotConnected
	}
	peer := p.peer
	p.mu.Unlock()
	go peer.deliver(s)
	return nil
}

func (p *Pipe) SendIQ(ctx context.Context, iq *IQ) (*IQ, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrNotConnected
	}
	if iq.ID == "" {
		p.nextID++
		iq.ID = fmt.Sprintf("iq-%d", p.nextID)
	}
	if iq.From == "" {
		iq.From = p.local
	}
	ch := make(chan *IQ, 1)
	p.pending[iq.ID] = ch
	peer := p.peer
	timeout := p.timeout
	p.mu.Unlock()

	go peer.deliver(iq)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		if resp.Type == IQError {
			err := resp.Error
			if err == nil {
				err = &StanzaError{Condition: "undefined-condition"}
			}
			return nil, err
		}
		return resp, nil
	case <-timer.C:
		p.dropPending(iq.ID)
		return nil, ErrNoResponse
	case <-ctx.Done():
		p.dropPending(iq.ID)
		return nil, ctx.Err()
	}
}

func (p *Pipe) dropPending(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *Pipe) HandleMessages(fn MessageHandler) {
	p.mu.Lock()
	p.msgHandler = fn
	p.mu.Unlock()
}

func (p *Pipe) HandleIQ(element string, fn IQHandler) {
	p.mu.Lock()
	p.iqHandlers[element] = fn
	p.mu.Unlock()
}

// HandlePresence observes non-subscribe presences delivered to this
// end, such as the subscribed/unsubscribed answers. Pipe-specific; the
// Transport interface does not need it.
func (p *Pipe) HandlePresence(fn func(*Presence)) {
	p.mu.Lock()
	p.prsHandler = fn
	p.mu.Unlock()
}

func (p *Pipe) HandleSubscribe(fn SubscribeHandler) {
	p.mu.Lock()
	p.subHandler = fn
	p.mu.Unlock()
}

// DiscoverServices returns the peer-end services advertising the
// namespace. An in-process pair has no further entities to ask.
func (p *Pipe) DiscoverServices(_ context.Context, namespace string) ([]ServiceInfo, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrNotConnected
	}
	peer := p.peer
	p.mu.Unlock()

	peer.mu.Lock()
	defer peer.mu.Unlock()
	var out []ServiceInfo
	for _, svc := range peer.services {
		for _, f := range svc.Features {
			if f == namespace {
				out = append(out, svc)
				break
			}
		}
	}
	return out, nil
}

// deliver runs on its own goroutine, one per inbound stanza.
func (p *Pipe) deliver(s Stanza) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	msgHandler := p.msgHandler
	subHandler := p.subHandler
	prsHandler := p.prsHandler
	p.mu.Unlock()

	switch st := s.(type) {
	case *Message:
		if msgHandler != nil {
			msgHandler(context.Background(), st)
		}
	case *Presence:
		if st.Type == PresenceSubscribe {
			if subHandler == nil {
				return
			}
			switch subHandler(context.Background(), st.From) {
			case SubscribeApprove:
				_ = p.Send(&Presence{Header: Header{From: p.local, To: st.From}, Type: PresenceSubscribed})
			case SubscribeDeny:
				_ = p.Send(&Presence{Header: Header{From: p.local, To: st.From}, Type: PresenceUnsubscribed})
			}
			return
		}
		if prsHandler != nil {
			prsHandler(st)
		}
	case *IQ:
		p.deliverIQ(st)
	}
}

func (p *Pipe) deliverIQ(iq *IQ) {
	switch iq.Type {
	case IQResult, IQError:
		p.mu.Lock()
		ch, ok := p.pending[iq.ID]
		if ok {
			delete(p.pending, iq.ID)
		}
		p.mu.Unlock()
		if ok {
			ch <- iq
		}
	case IQGet, IQSet:
		element := iqPayloadElement(iq)
		p.mu.Lock()
		fn := p.iqHandlers[element]
		p.mu.Unlock()
		if fn == nil {
			return
		}
		if resp := fn(context.Background(), iq); resp != nil {
			_ = p.Send(resp)
		}
	}
}

func iqPayloadElement(iq *IQ) string {
	switch {
	case iq.IsFriend != nil:
		return "isFriend"
	case iq.ClearCache != nil:
		return "clearCache"
	default:
		return ""
	}
}
