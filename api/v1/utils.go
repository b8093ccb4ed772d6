package v1

import (
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Forwarding headers consulted in order. The service runs behind one
// reverse proxy, optionally fronted by Cloudflare, so this list is the set
// of headers those two actually write.
var forwardHeaders = []string{
	"CF-Connecting-IP",
	"X-Real-IP",
}

// getClientIP resolves the client address behind the proxy chain. The
// resolved IP feeds geo attribution and, under the ip dedup policy, visitor
// identity, so a public forwarded address wins over the socket address.
func getClientIP(c *fiber.Ctx) string {
	// X-Forwarded-For accumulates one hop per proxy; the leftmost public
	// entry is the client.
	for _, hop := range strings.Split(c.Get(fiber.HeaderXForwardedFor), ",") {
		if addr, ok := parseAddr(hop); ok && isPublic(addr) {
			return addr.String()
		}
	}

	for _, header := range forwardHeaders {
		if addr, ok := parseAddr(c.Get(header)); ok && isPublic(addr) {
			return addr.String()
		}
	}

	if addr, ok := parseAddr(c.IP()); ok {
		return addr.String()
	}
	return "127.0.0.1"
}

// parseAddr normalizes one header value or socket host into an address:
// whitespace and quotes stripped, optional port and zone removed, 4-in-6
// mappings unwrapped.
func parseAddr(raw string) (netip.Addr, bool) {
	value := strings.Trim(strings.TrimSpace(raw), "\"[]")
	if value == "" {
		return netip.Addr{}, false
	}
	if zone := strings.IndexByte(value, '%'); zone != -1 {
		value = value[:zone]
	}

	addr, err := netip.ParseAddr(value)
	if err != nil {
		addrPort, portErr := netip.ParseAddrPort(value)
		if portErr != nil {
			return netip.Addr{}, false
		}
		addr = addrPort.Addr()
	}
	return addr.Unmap(), true
}

// isPublic reports whether the address can plausibly identify an external
// visitor. Private, loopback, and link-local ranges are proxy hops, not
// clients.
func isPublic(addr netip.Addr) bool {
	return addr.IsValid() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsUnspecified()
}
