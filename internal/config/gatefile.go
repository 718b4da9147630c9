package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// TenantEntry is one tenant (subdomain label) in the gate file.
type TenantEntry struct {
	// Public marks the tenant as reachable without a session, except for PathExceptions.
	Public bool `mapstructure:"public"`
	// AllowedRoles lists the roles permitted on this tenant; ignored for fully public tenants.
	AllowedRoles []string `mapstructure:"allowed_roles"`
	// PathExceptions lists path prefixes on a public tenant that still require a session.
	PathExceptions []string `mapstructure:"path_exceptions"`
	// RoutePermissions maps a path prefix to the permission required on that route.
	RoutePermissions map[string]string `mapstructure:"route_permissions"`
}

// GateFile is the static gate configuration: the tenant table and the role → permission table.
// Loaded once at startup; the registry and permission engine are built from it and never mutated.
type GateFile struct {
	// Tenants maps subdomain label to its entry. The "" label is the root tenant ("www" aliases it).
	Tenants map[string]TenantEntry `mapstructure:"tenants"`
	// Permissions maps role name to its permission list. The entry "*" grants everything.
	Permissions map[string][]string `mapstructure:"permissions"`
}

// LoadGateFile reads and validates the YAML gate file at path.
// Returns an error when the file is missing, unparsable, or names no tenants.
func LoadGateFile(path string) (*GateFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("gate config %s: %w", path, err)
	}

	var gf GateFile
	if err := v.Unmarshal(&gf); err != nil {
		return nil, fmt.Errorf("gate config %s: %w", path, err)
	}
	if len(gf.Tenants) == 0 {
		return nil, fmt.Errorf("gate config %s: no tenants defined", path)
	}
	for label, t := range gf.Tenants {
		if !t.Public && len(t.AllowedRoles) == 0 {
			return nil, fmt.Errorf("gate config %s: protected tenant %q has no allowed_roles", path, label)
		}
	}
	return &gf, nil
}
