// Package tenant resolves the inbound Host header to a tenant and holds the
// static subdomain registry the gate consults.
package tenant

import (
	"errors"
	"net"
	"strings"
)

// ErrInvalidHost is returned when the Host header is empty or does not match
// the expected <label>.<rootDomain> structure.
var ErrInvalidHost = errors.New("invalid host header")

// Host is the parsed form of an inbound Host header. Built fresh per request.
type Host struct {
	Raw        string
	RootDomain string
	// Label is the subdomain label; "" is the root tenant ("www" normalizes to it).
	Label string
}

// Resolver parses Host headers against a configured root domain.
// Pure parsing; no network or store access.
type Resolver struct {
	rootDomain string
}

// NewResolver returns a Resolver for the given root domain. An empty root
// domain enables local mode: any host without dots (e.g. "localhost") and any
// IP literal resolve to the root tenant.
func NewResolver(rootDomain string) *Resolver {
	return &Resolver{rootDomain: strings.ToLower(strings.TrimSpace(rootDomain))}
}

// Resolve parses the Host header into a Host value. The port is stripped, the
// name lowercased, and the root-domain suffix removed to obtain the label.
// Fails with ErrInvalidHost when the header is empty or structured wrong.
func (r *Resolver) Resolve(hostHeader string) (Host, error) {
	raw := strings.TrimSpace(hostHeader)
	if raw == "" {
		return Host{}, ErrInvalidHost
	}
	name := stripPort(raw)
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	if name == "" {
		return Host{}, ErrInvalidHost
	}

	if r.rootDomain == "" {
		// Local/development mode: no real root domain to match against.
		if net.ParseIP(strings.Trim(name, "[]")) != nil || !strings.Contains(name, ".") {
			return Host{Raw: raw, Label: ""}, nil
		}
		return Host{}, ErrInvalidHost
	}

	if name == r.rootDomain {
		return Host{Raw: raw, RootDomain: r.rootDomain, Label: ""}, nil
	}
	label, ok := strings.CutSuffix(name, "."+r.rootDomain)
	if !ok || label == "" {
		return Host{}, ErrInvalidHost
	}
	if strings.Contains(label, ".") {
		// Nested subdomains are not part of the host contract.
		return Host{}, ErrInvalidHost
	}
	if label == "www" {
		label = ""
	}
	return Host{Raw: raw, RootDomain: r.rootDomain, Label: label}, nil
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
