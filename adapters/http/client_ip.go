package identityhttp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc determines the client key used for rate limiting. Returning an
// empty string means "unknown" and causes rate limiting to fail open.
type ClientIPFunc func(r *http.Request) string

// DefaultClientIP uses the public remote address and returns "" for private
// or loopback peers, so a reverse proxy is never rate-limited as one client.
func DefaultClientIP() ClientIPFunc {
	return func(r *http.Request) string {
		ip := remoteIP(r)
		if ip == "" {
			return ""
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil || !isPublicAddr(addr) {
			return ""
		}
		return addr.String()
	}
}

// ClientIPFromForwardedHeaders trusts X-Forwarded-For only when the immediate
// peer is in trustedProxies; otherwise it behaves like DefaultClientIP.
func ClientIPFromForwardedHeaders(trustedProxies []netip.Prefix) ClientIPFunc {
	fallback := DefaultClientIP()
	return func(r *http.Request) string {
		peer := remoteIP(r)
		peerAddr, err := netip.ParseAddr(peer)
		if err != nil {
			return ""
		}
		for _, p := range trustedProxies {
			if p.Contains(peerAddr) {
				if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
					first := strings.TrimSpace(strings.Split(fwd, ",")[0])
					if a, err := netip.ParseAddr(first); err == nil && isPublicAddr(a) {
						return a.String()
					}
				}
				return ""
			}
		}
		return fallback(r)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

func isPublicAddr(a netip.Addr) bool {
	return a.IsValid() && !a.IsLoopback() && !a.IsPrivate() &&
		!a.IsLinkLocalUnicast() && !a.IsLinkLocalMulticast() && !a.IsUnspecified()
}
