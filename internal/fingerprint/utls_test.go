package fingerprint

import (
	"net/http"
	"testing"

	utls "github.com/refraction-networking/utls"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in   string
		want Profile
	}{
		{"", ProfileGo},
		{"go", ProfileGo},
		{"Chrome", ProfileChrome},
		{" firefox ", ProfileFirefox},
		{"safari", ProfileSafari},
	}
	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if err != nil {
			t.Errorf("ParseProfile(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseProfile("netscape"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestTransport_Profiles(t *testing.T) {
	for _, p := range []Profile{ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p)
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}
			tr, ok := rt.(*http.Transport)
			if !ok {
				t.Fatalf("expected *http.Transport, got %T", rt)
			}
			if p == ProfileGo && tr.DialTLSContext != nil {
				t.Errorf("expected the standard TLS dialer for the go profile")
			}
			if p != ProfileGo && tr.DialTLSContext == nil {
				t.Errorf("expected a utls dialer for profile %s", p)
			}
		})
	}
}

func TestHelloSpecOffersHTTP1Only(t *testing.T) {
	id, err := helloID(ProfileChrome)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	spec, err := helloSpec(id)
	if err != nil {
		t.Fatalf("Failed to build spec: %v", err)
	}
	found := false
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			found = true
			if len(alpn.AlpnProtocols) != 1 || alpn.AlpnProtocols[0] != "http/1.1" {
				t.Errorf("expected ALPN [http/1.1], got %v", alpn.AlpnProtocols)
			}
		}
	}
	if !found {
		t.Error("expected an ALPN extension in the chrome hello")
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	if _, err := Transport(Profile("unknown_browser")); err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
}
