package provisioning

import (
	"context"
	"errors"
	"testing"

	"github.com/ryandielhenn/friendgate/pkg/xmpp"
)

func TestServerReferenceExplicit(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ref := NewServerReference(ft, nil)
	ref.Set("prov.example.org/component")

	server, ok, err := ref.Resolve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Resolve = %v,%v want ok", ok, err)
	}
	if server != "prov.example.org" {
		t.Fatalf("server = %q, want configured address stripped to bare", server)
	}
	if ft.discoverCalls != 0 {
		t.Fatalf("explicit configuration triggered %d discovery calls, want 0", ft.discoverCalls)
	}
}

func TestServerReferenceDiscovery(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ft.discoverFn = func(_ context.Context, ns string) ([]xmpp.ServiceInfo, error) {
		if ns != xmpp.ProvisioningNamespace {
			t.Fatalf("discovered namespace %q, want %q", ns, xmpp.ProvisioningNamespace)
		}
		return []xmpp.ServiceInfo{
			{JID: "prov.example.org", Features: []string{xmpp.ProvisioningNamespace}},
			{JID: "backup.example.org", Features: []string{xmpp.ProvisioningNamespace}},
		}, nil
	}
	ref := NewServerReference(ft, nil)

	server, ok, err := ref.Resolve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Resolve = %v,%v want ok", ok, err)
	}
	if server != "prov.example.org" {
		t.Fatalf("server = %q, want first entry's domain address", server)
	}

	// Cached for the session: no second discovery.
	if _, _, err := ref.Resolve(context.Background()); err != nil {
		t.Fatalf("cached Resolve: %v", err)
	}
	if ft.discoverCalls != 1 {
		t.Fatalf("discovery calls = %d, want 1", ft.discoverCalls)
	}
}

func TestServerReferenceNotFound(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ref := NewServerReference(ft, nil)

	server, ok, err := ref.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve err = %v, want nil: absence is not an error", err)
	}
	if ok || server != "" {
		t.Fatalf("Resolve = %q,%v want NotFound", server, ok)
	}

	// NotFound is not cached; a later discovery can still succeed.
	ft.discoverFn = func(context.Context, string) ([]xmpp.ServiceInfo, error) {
		return []xmpp.ServiceInfo{{JID: "prov.example.org"}}, nil
	}
	server, ok, err = ref.Resolve(context.Background())
	if err != nil || !ok || server != "prov.example.org" {
		t.Fatalf("Resolve after server appeared = %q,%v,%v", server, ok, err)
	}
}

func TestServerReferenceDiscoveryFailureRetries(t *testing.T) {
	boom := errors.New("transport down")
	ft := newFakeTransport("device@example.org")
	ft.discoverFn = func(context.Context, string) ([]xmpp.ServiceInfo, error) {
		return nil, boom
	}
	ref := NewServerReference(ft, nil)

	if _, ok, err := ref.Resolve(context.Background()); ok || !errors.Is(err, boom) {
		t.Fatalf("Resolve = %v,%v want failure", ok, err)
	}

	// The failure left the reference unresolved: next access retries.
	ft.discoverFn = func(context.Context, string) ([]xmpp.ServiceInfo, error) {
		return []xmpp.ServiceInfo{{JID: "prov.example.org"}}, nil
	}
	server, ok, err := ref.Resolve(context.Background())
	if err != nil || !ok || server != "prov.example.org" {
		t.Fatalf("Resolve retry = %q,%v,%v", server, ok, err)
	}
}

func TestServerReferenceDomainSelection(t *testing.T) {
	ft := newFakeTransport("device@example.org")
	ft.discoverFn = func(context.Context, string) ([]xmpp.ServiceInfo, error) {
		return []xmpp.ServiceInfo{{JID: "prov@things.example.org/unit"}}, nil
	}
	ref := NewServerReference(ft, nil)

	server, _, err := ref.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if server != "things.example.org" {
		t.Fatalf("server = %q, want domain-level address", server)
	}
}
