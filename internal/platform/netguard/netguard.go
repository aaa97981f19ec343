// Package netguard keeps outbound fetches away from loopback, link-local
// and private networks, both for the URL as given and for every redirect
// hop and resolved address behind it.
package netguard

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"syscall"
	"time"
)

// ErrBlocked marks a destination inside an internal network.
var ErrBlocked = errors.New("destination not allowed")

const maxRedirects = 10

// Guard checks outbound destinations. Allow lists exact host:port pairs
// that are exempt from the internal-address rule.
type Guard struct {
	Allow []string
}

// IsInternal reports whether ip is loopback, link-local, private or unspecified.
func IsInternal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}

func (g Guard) allowed(hostport string) bool {
	return slices.Contains(g.Allow, hostport)
}

// CheckURL rejects non-http(s) URLs and URLs whose host is localhost or a
// literal internal IP. Hostnames are checked again at dial time.
func (g Guard) CheckURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.New("URL has no host")
	}
	if g.allowed(u.Host) {
		return nil
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: localhost/internal IPs are not allowed", ErrBlocked)
	}
	if ip := net.ParseIP(host); ip != nil && IsInternal(ip) {
		return fmt.Errorf("%w: internal or private IP %s", ErrBlocked, ip)
	}
	return nil
}

// Control is a net.Dialer hook; address is already resolved to an IP.
func (g Guard) Control(network, address string, _ syscall.RawConn) error {
	if g.allowed(address) {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlocked, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || IsInternal(ip) {
		return fmt.Errorf("%w: dial %s", ErrBlocked, address)
	}
	return nil
}

// CheckRedirect validates every redirect hop.
func (g Guard) CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return g.CheckURL(req.URL)
}

// Client returns an HTTP client that enforces the guard on redirects and
// on every connection it opens. Proxies are not used, so the dialed
// address is always the real destination.
func (g Guard) Client() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   g.Control,
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	tr.DialContext = dialer.DialContext
	return &http.Client{Transport: tr, CheckRedirect: g.CheckRedirect}
}
