package model

import "strings"

// Role represents the role of a dashboard user.
type Role string

const (
	// RoleSuperAdmin manages admins and every other resource.
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin manages mentors, mentee groups and announcements.
	RoleAdmin Role = "admin"
	// RoleMentor records meetings for the groups they lead.
	RoleMentor Role = "mentor"
)

// Roles lists every known role.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleMentor}

// ParseRole normalizes s into a Role. Unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Label returns a display label for the role.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleMentor:
		return "Mentor"
	default:
		return string(r)
	}
}

// User is the session user record returned by the backend at login.
type User struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           Role    `json:"role"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	Status         string  `json:"status,omitempty"`
}

// IsAdmin reports whether the user has admin or super admin rights.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// IsSuperAdmin reports whether the user is a super admin.
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// IsMentor reports whether the user is a mentor.
func (u *User) IsMentor() bool {
	return u.Role == RoleMentor
}

// PicturePath returns the stored profile picture path, or "".
func (u *User) PicturePath() string {
	if u.ProfilePicture == nil {
		return ""
	}
	return *u.ProfilePicture
}
