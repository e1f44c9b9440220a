package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the canonical client address for r. With trustProxy set,
// the first X-Forwarded-For entry and then X-Real-IP are tried before
// RemoteAddr; header values that are not IP addresses are ignored.
// IPv4-mapped IPv6 addresses are reported in IPv4 form and zones are dropped.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if addr, ok := parseAddr(first); ok {
				return addr.String()
			}
		}
		if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return addr.String()
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if addr, ok := parseAddr(host); ok {
		return addr.String()
	}
	return host
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap().WithZone(""), true
}

// LimitKey groups client addresses for rate accounting: IPv4 addresses stand
// alone, IPv6 addresses share a bucket per /64 network.
func LimitKey(ip string) string {
	addr, ok := parseAddr(ip)
	if !ok || addr.Is4() {
		return ip
	}
	prefix, err := addr.Prefix(64)
	if err != nil {
		return ip
	}
	return prefix.String()
}
