package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

func TestOriginGateTrusted(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ref := NewServerReference(ft, nil)
	ref.Set("prov.example.org")
	gate := NewOriginGate(ref, nil)

	if !gate.Trusted(context.Background(), "prov.example.org") {
		t.Fatalf("Trusted(server) = false, want true")
	}
}

func TestOriginGateMismatch(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ref := NewServerReference(ft, nil)
	ref.Set("prov.example.org")
	gate := NewOriginGate(ref, nil)

	for _, from := range []xmpp.JID{
		"evil.example.org",
		"prov.example.org.evil.example",
		"alice@prov.example.org",
	} {
		if gate.Trusted(context.Background(), from) {
			t.Fatalf("Trusted(%q) = true, want false", from)
		}
	}
}

func TestOriginGateUnconfigured(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	// Discovery yields nothing: no provisioning server known.
	gate := NewOriginGate(NewServerReference(ft, nil), nil)

	if gate.Trusted(context.Background(), "prov.example.org") {
		t.Fatalf("Trusted = true with no server configured, want false")
	}
}

func TestOriginGateFailsClosed(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ft.discoverFn = func(context.Context, string) ([]xmpp.ServiceInfo, error) {
		return nil, errors.New("discovery timeout")
	}
	gate := NewOriginGate(NewServerReference(ft, nil), nil)

	if gate.Trusted(context.Background(), "prov.example.org") {
		t.Fatalf("Trusted = true on resolution error, want fail closed")
	}
}
