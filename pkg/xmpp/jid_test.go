package xmpp

import "testing"

func TestParseJID(t *testing.T) {
	valid := []string{
		"alice@example.org",
		"alice@example.org/phone",
		"prov.example.org",
		"prov.example.org/component",
	}
	for _, s := range valid {
		if _, err := ParseJID(s); err != nil {
			t.Fatalf("ParseJID(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{
		"",
		"@example.org",
		"alice@",
		"alice@example.org/",
		"alice@exa@mple.org",
	}
	for _, s := range invalid {
		if _, err := ParseJID(s); err == nil {
			t.Fatalf("ParseJID(%q) = nil error, want error", s)
		}
	}
}

func TestJIDParts(t *testing.T) {
	j := JID("alice@example.org/phone")
	if got := j.Bare(); got != "alice@example.org" {
		t.Fatalf("Bare = %q, want alice@example.org", got)
	}
	if got := j.Domain(); got != "example.org" {
		t.Fatalf("Domain = %q, want example.org", got)
	}
	if got := j.Resource(); got != "phone" {
		t.Fatalf("Resource = %q, want phone", got)
	}
	if j.IsBare() {
		t.Fatalf("IsBare = true for full JID")
	}
	if !j.Bare().IsBare() {
		t.Fatalf("IsBare = false for bare JID")
	}

	d := JID("prov.example.org")
	if !d.IsDomain() {
		t.Fatalf("IsDomain = false for %q", d)
	}
	if JID("alice@example.org").IsDomain() {
		t.Fatalf("IsDomain = true for bare user JID")
	}
}
