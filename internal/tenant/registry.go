package tenant

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tenant-access-gate/backend/internal/config"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

// ErrUnknownSubdomain is returned for labels not present in the registry.
// The gate maps it to the same not-found outcome as an invalid host, so valid
// tenant names cannot be probed.
var ErrUnknownSubdomain = errors.New("unknown subdomain")

// Descriptor is the static policy for one tenant.
type Descriptor struct {
	Label  string
	Public bool
	// allowedRoles is the set of roles permitted on a protected tenant.
	// Empty means any authenticated role (the public-tenant case).
	allowedRoles map[userdomain.Role]struct{}
	// pathExceptions are path prefixes on a public tenant that still require a session.
	pathExceptions []string
	// routePermissions maps a path prefix to the permission required there.
	routePermissions map[string]string
}

// RoleAllowed reports whether the role may enter this tenant. An empty role
// set admits any authenticated role: public tenants list no roles, yet their
// path exceptions still demand a session. Protected tenants must name their
// roles in the gate file.
func (d *Descriptor) RoleAllowed(role userdomain.Role) bool {
	if len(d.allowedRoles) == 0 {
		return true
	}
	_, ok := d.allowedRoles[role]
	return ok
}

// AllowedRoles returns the tenant's allowed roles, sorted. For logging and admin surfaces.
func (d *Descriptor) AllowedRoles() []userdomain.Role {
	out := make([]userdomain.Role, 0, len(d.allowedRoles))
	for r := range d.allowedRoles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RequiresSession reports whether the given path needs an authenticated
// session on this tenant. Protected tenants always do; public tenants only
// for their path exceptions.
func (d *Descriptor) RequiresSession(path string) bool {
	if !d.Public {
		return true
	}
	for _, prefix := range d.pathExceptions {
		if pathHasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// RequiredPermission returns the permission a route demands, if any.
// The longest matching prefix wins.
func (d *Descriptor) RequiredPermission(path string) (string, bool) {
	best := ""
	perm := ""
	for prefix, p := range d.routePermissions {
		if pathHasPrefix(path, prefix) && len(prefix) > len(best) {
			best, perm = prefix, p
		}
	}
	return perm, best != ""
}

// Registry is the static, process-wide tenant table. Built once at startup
// from the gate file; read-only afterward, safe for unsynchronized concurrent reads.
type Registry struct {
	tenants map[string]*Descriptor
}

// NewRegistry builds the registry from the gate file. Role names are
// validated; unknown roles fail construction rather than silently never matching.
func NewRegistry(gf *config.GateFile) (*Registry, error) {
	tenants := make(map[string]*Descriptor, len(gf.Tenants))
	for label, entry := range gf.Tenants {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "www" {
			return nil, errors.New(`tenant "www" is an alias of the root tenant ""; configure "" instead`)
		}
		d := &Descriptor{
			Label:            label,
			Public:           entry.Public,
			allowedRoles:     make(map[userdomain.Role]struct{}, len(entry.AllowedRoles)),
			pathExceptions:   normalizePaths(entry.PathExceptions),
			routePermissions: make(map[string]string, len(entry.RoutePermissions)),
		}
		for _, rs := range entry.AllowedRoles {
			role, err := userdomain.ParseRole(rs)
			if err != nil {
				return nil, fmt.Errorf("tenant %q: %w", label, err)
			}
			d.allowedRoles[role] = struct{}{}
		}
		for prefix, perm := range entry.RoutePermissions {
			perm = strings.TrimSpace(perm)
			if perm == "" {
				return nil, fmt.Errorf("tenant %q: empty permission for route %q", label, prefix)
			}
			d.routePermissions[normalizePath(prefix)] = perm
		}
		if _, dup := tenants[label]; dup {
			return nil, fmt.Errorf("tenant %q: duplicate label", label)
		}
		tenants[label] = d
	}
	return &Registry{tenants: tenants}, nil
}

// Describe returns the descriptor for the label, or ErrUnknownSubdomain.
func (r *Registry) Describe(label string) (*Descriptor, error) {
	d, ok := r.tenants[strings.ToLower(label)]
	if !ok {
		return nil, ErrUnknownSubdomain
	}
	return d, nil
}

func normalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = normalizePath(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// pathHasPrefix matches whole path segments: "/billing" covers "/billing" and
// "/billing/x" but not "/billingx".
func pathHasPrefix(path, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
