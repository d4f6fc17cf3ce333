package xmpp

import (
	"fmt"
	"strings"
)

// JID is an XMPP address: localpart@domain/resource. Localpart and
// resource are optional; a bare JID has no resource, a domain JID has
// neither localpart nor resource.
type JID string

// ParseJID validates the basic localpart@domain/resource shape. It does
// not apply the full stringprep profiles; the transport is expected to
// deliver already-normalized addresses.
func ParseJID(s string) (JID, error) {
	if s == "" {
		return "", fmt.Errorf("empty jid")
	}
	bare := s
	if i := strings.IndexByte(s, '/'); i >= 0 {
		if i == len(s)-1 {
			return "", fmt.Errorf("jid %q: empty resource", s)
		}
		bare = s[:i]
	}
	domain := bare
	if i := strings.IndexByte(bare, '@'); i >= 0 {
		if i == 0 {
			return "", fmt.Errorf("jid %q: empty localpart", s)
		}
		domain = bare[i+1:]
	}
	if domain == "" || strings.ContainsAny(domain, "@/") {
		return "", fmt.Errorf("jid %q: invalid domain", s)
	}
	return JID(s), nil
}

// Bare strips the resource, if any.
func (j JID) Bare() JID {
	if i := strings.IndexByte(string(j), '/'); i >= 0 {
		return j[:i]
	}
	return j
}

// Domain returns the domain part.
func (j JID) Domain() JID {
	bare := j.Bare()
	if i := strings.IndexByte(string(bare), '@'); i >= 0 {
		return bare[i+1:]
	}
	return bare
}

// Resource returns the resource part, or "" for a bare JID.
func (j JID) Resource() string {
	if i := strings.IndexByte(string(j), '/'); i >= 0 {
		return string(j[i+1:])
	}
	return ""
}

func (j JID) IsBare() bool {
	return j != "" && j.Resource() == ""
}

// IsDomain reports whether the JID is a pure domain address, the form a
// server component is addressed by.
func (j JID) IsDomain() bool {
	return j != "" && j == j.Domain()
}

func (j JID) String() string { return string(j) }
