package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP rewrites RemoteAddr to the originating client address. Forwarding
// headers are honoured only when the socket peer is a trusted proxy, so a
// direct caller cannot pick its own rate limit key.
type ClientIP struct {
	Trusted []netip.Prefix
}

// ParseTrustedProxies accepts CIDR blocks or bare addresses.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			prefix, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Middleware stores the resolved address in RemoteAddr for logging and keys.
func (c ClientIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := c.Resolve(r); ip != "" {
			r.RemoteAddr = ip
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve returns the client address for r. With a trusted peer the
// X-Forwarded-For chain is walked from the right and the first untrusted hop
// wins; X-Real-IP is the fallback.
func (c ClientIP) Resolve(r *http.Request) string {
	peer, ok := parseHost(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !c.trusted(peer) {
		return peer.String()
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, ok := parseHost(hops[i])
			if !ok {
				break
			}
			if !c.trusted(hop) {
				return hop.String()
			}
		}
	}
	if xri, ok := parseHost(r.Header.Get("X-Real-IP")); ok {
		return xri.String()
	}
	return peer.String()
}

func (c ClientIP) trusted(addr netip.Addr) bool {
	for _, prefix := range c.Trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseHost(value string) (netip.Addr, bool) {
	host := strings.TrimSpace(value)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
