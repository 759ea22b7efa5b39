// Package access decides which dashboard paths each role may open.
package access

import (
	"strings"

	"github.com/me/jejakliqo/pkg/model"
)

// Well-known paths.
const (
	LoginPath        = "/login"
	SuperAdminHome   = "/super-admin/dashboard"
	AdminHome        = "/admin/dashboard"
	MentorHome       = "/mentor/dashboard"
	UnauthorizedPath = "/unauthorized"
)

// rule grants a path prefix to a set of roles. An empty role set means any
// authenticated role.
type rule struct {
	prefix string
	roles  []model.Role
}

// rules are matched longest prefix first.
var rules = []rule{
	{prefix: "/super-admin", roles: []model.Role{model.RoleSuperAdmin}},
	{prefix: "/admin/admins", roles: []model.Role{model.RoleSuperAdmin}},
	{prefix: "/admin", roles: []model.Role{model.RoleSuperAdmin, model.RoleAdmin}},
	{prefix: "/mentor", roles: []model.Role{model.RoleMentor}},
	{prefix: "/profile"},
	{prefix: "/announcements"},
	{prefix: "/settings"},
}

// publicPaths are reachable without a session.
var publicPaths = []string{LoginPath, "/forgot-password", UnauthorizedPath}

// IsPublic reports whether path can be opened without logging in.
func IsPublic(path string) bool {
	for _, p := range publicPaths {
		if matches(path, p) {
			return true
		}
	}
	return false
}

// Allowed reports whether role may open path. Public paths are always
// allowed; unknown roles are denied everything else, as are paths no rule
// covers.
func Allowed(role model.Role, path string) bool {
	if IsPublic(path) {
		return true
	}
	if !role.IsValid() {
		return false
	}

	var best *rule
	for i := range rules {
		r := &rules[i]
		if matches(path, r.prefix) && (best == nil || len(r.prefix) > len(best.prefix)) {
			best = r
		}
	}
	if best == nil {
		return false
	}
	if len(best.roles) == 0 {
		return true
	}
	for _, allowed := range best.roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// HomePath returns the landing page for role.
func HomePath(role model.Role) string {
	switch role {
	case model.RoleSuperAdmin:
		return SuperAdminHome
	case model.RoleAdmin:
		return AdminHome
	case model.RoleMentor:
		return MentorHome
	default:
		return LoginPath
	}
}

// Resolve returns the path a user should land on when asking for path:
// the login page without a role, their home page when path is denied,
// otherwise path itself.
func Resolve(role model.Role, path string) string {
	if role == "" {
		if IsPublic(path) {
			return path
		}
		return LoginPath
	}
	if path == LoginPath || path == "" || path == "/" {
		return HomePath(role)
	}
	if !Allowed(role, path) {
		return HomePath(role)
	}
	return path
}

// matches reports whether path equals prefix or lies beneath it.
func matches(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}
