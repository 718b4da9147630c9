package tenant

import (
	"errors"
	"testing"

	"tenant-access-gate/backend/internal/config"
	userdomain "tenant-access-gate/backend/internal/user/domain"
)

func testGateFile() *config.GateFile {
	return &config.GateFile{
		Tenants: map[string]config.TenantEntry{
			"": {
				Public:         true,
				PathExceptions: []string{"/dashboard", "/wallet"},
			},
			"app": {
				Public:         true,
				PathExceptions: []string{"/account"},
			},
			"admin": {
				AllowedRoles: []string{"admin", "god"},
				RoutePermissions: map[string]string{
					"/settings": "platform.settings.write",
				},
			},
			"staff": {
				AllowedRoles: []string{"staff", "admin", "god"},
			},
		},
	}
}

func TestRegistry_Describe(t *testing.T) {
	reg, err := NewRegistry(testGateFile())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	d, err := reg.Describe("admin")
	if err != nil {
		t.Fatalf("Describe(admin): %v", err)
	}
	if d.Public {
		t.Error("admin tenant: want protected")
	}
	if !d.RoleAllowed(userdomain.RoleAdmin) || !d.RoleAllowed(userdomain.RoleGod) {
		t.Error("admin tenant: admin and god must be allowed")
	}
	if d.RoleAllowed(userdomain.RoleStaff) {
		t.Error("admin tenant: staff must not be allowed")
	}

	if _, err := reg.Describe("nope"); !errors.Is(err, ErrUnknownSubdomain) {
		t.Errorf("Describe(nope): got %v, want ErrUnknownSubdomain", err)
	}
}

func TestDescriptor_RoleAllowed_EmptySetAdmitsAnyRole(t *testing.T) {
	reg, err := NewRegistry(testGateFile())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	// Public tenants list no roles; their path exceptions require a session
	// but admit every authenticated role.
	d, err := reg.Describe("app")
	if err != nil {
		t.Fatalf("Describe(app): %v", err)
	}
	for _, role := range []userdomain.Role{
		userdomain.RoleGod, userdomain.RoleAdmin, userdomain.RoleStaff,
		userdomain.RoleTeacher, userdomain.RoleStudent,
	} {
		if !d.RoleAllowed(role) {
			t.Errorf("app tenant: role %s must be allowed", role)
		}
	}
}

func TestDescriptor_RequiresSession(t *testing.T) {
	reg, err := NewRegistry(testGateFile())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	root, _ := reg.Describe("")
	tests := []struct {
		path string
		want bool
	}{
		{"/", false},
		{"/courses", false},
		{"/dashboard", true},
		{"/dashboard/students", true},
		{"/dashboardx", false},
		{"/wallet", true},
	}
	for _, tt := range tests {
		if got := root.RequiresSession(tt.path); got != tt.want {
			t.Errorf("root.RequiresSession(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	admin, _ := reg.Describe("admin")
	if !admin.RequiresSession("/") {
		t.Error("protected tenant must require a session on every path")
	}
}

func TestDescriptor_RequiredPermission(t *testing.T) {
	reg, err := NewRegistry(testGateFile())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	admin, _ := reg.Describe("admin")

	perm, ok := admin.RequiredPermission("/settings/billing")
	if !ok || perm != "platform.settings.write" {
		t.Errorf("RequiredPermission(/settings/billing) = %q, %v", perm, ok)
	}
	if _, ok := admin.RequiredPermission("/students"); ok {
		t.Error("RequiredPermission(/students): want none")
	}
}

func TestNewRegistry_Invalid(t *testing.T) {
	bad := &config.GateFile{Tenants: map[string]config.TenantEntry{
		"admin": {AllowedRoles: []string{"superuser"}},
	}}
	if _, err := NewRegistry(bad); err == nil {
		t.Error("unknown role name: want error")
	}

	www := &config.GateFile{Tenants: map[string]config.TenantEntry{
		"www": {Public: true},
	}}
	if _, err := NewRegistry(www); err == nil {
		t.Error(`tenant "www": want error`)
	}
}
