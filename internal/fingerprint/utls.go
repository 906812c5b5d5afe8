package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello outbound API calls present.
type Profile string

const (
	ProfileGo      Profile = "go" // standard library TLS
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
)

// ParseProfile maps a config value to a Profile. Empty selects ProfileGo.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProfileGo, nil
	case ProfileGo, ProfileChrome, ProfileFirefox, ProfileSafari:
		return p, nil
	default:
		return "", fmt.Errorf("unknown tls profile %q", s)
	}
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown tls profile %q", p)
	}
}

// Transport returns a RoundTripper for p. ProfileGo is a clone of
// http.DefaultTransport; the others dial TLS through utls with the matching
// ClientHello. Proxy settings come from the environment in both cases.
func Transport(p Profile) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p == ProfileGo || p == "" {
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}
	if _, err := helloSpec(id); err != nil {
		return nil, fmt.Errorf("build %s client hello: %w", p, err)
	}

	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		spec, err := helloSpec(id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, utls.HelloCustom)
		if err := uConn.ApplyPreset(spec); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("apply %s client hello: %w", p, err)
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

// helloSpec builds a fresh ClientHello for id that only offers HTTP/1.1,
// since http.Transport cannot speak h2 over a custom TLS dialer. Extensions
// carry per-handshake state, so every connection gets its own spec.
func helloSpec(id utls.ClientHelloID) (*utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return &spec, nil
}
