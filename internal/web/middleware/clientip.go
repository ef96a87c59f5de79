package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/changeorders/internal/logging"
)

// ClientIP resolves the address of the client behind each request and stores
// it with logging.WithClientIP, where the request logger, session loggers and
// the rate limiter pick it up. r.RemoteAddr is rewritten to the same value.
//
// Forwarding headers are honoured only when the connection comes from one of
// trusted (CIDRs or bare addresses). X-Forwarded-For is read right to left and
// the first hop that is not itself a trusted proxy wins; X-Real-IP is used
// when no such hop exists.
func ClientIP(trusted []string) func(http.Handler) http.Handler {
	proxies := parseProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClient(r, proxies)
			if ip.IsValid() {
				r.RemoteAddr = ip.String()
				r = r.WithContext(logging.WithClientIP(r.Context(), ip.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseProxies(trusted []string) []netip.Prefix {
	var out []netip.Prefix
	for _, entry := range trusted {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			slog.Warn("ignoring trusted proxy entry", "entry", entry, "error", err)
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func resolveClient(r *http.Request, proxies []netip.Prefix) netip.Addr {
	peer := parseAddr(r.RemoteAddr)
	if !peer.IsValid() || !trustedProxy(peer, proxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := parseAddr(hops[i])
			if !hop.IsValid() {
				break
			}
			if !trustedProxy(hop, proxies) {
				return hop
			}
		}
	}
	if real := parseAddr(r.Header.Get("X-Real-IP")); real.IsValid() {
		return real
	}
	return peer
}

// parseAddr accepts "ip", "ip:port" and "[ipv6]:port".
func parseAddr(s string) netip.Addr {
	s = strings.TrimSpace(s)
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap()
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func trustedProxy(addr netip.Addr, proxies []netip.Prefix) bool {
	for _, p := range proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
