package auth

import (
	"slices"
	"time"
)

// Method names the credential that produced an Identity. Its string form
// is what pipeline metadata reports as auth_type.
type Method string

const (
	MethodAPIKey Method = "api_key"
	MethodJWT    Method = "jwt"
)

// Identity is the caller behind an authenticated tool request.
type Identity struct {
	// Principal is the key ID for API keys and the subject for JWTs.
	Principal   string
	Method      Method
	Permissions []string

	// Claims holds token claims, or key metadata plus "key_id".
	Claims map[string]any

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Can reports whether the identity was granted perm.
func (id *Identity) Can(perm string) bool {
	return slices.Contains(id.Permissions, perm)
}

// GrantedPermissions returns a copy of Permissions that is never nil.
func (id *Identity) GrantedPermissions() []string {
	if len(id.Permissions) == 0 {
		return []string{}
	}
	return slices.Clone(id.Permissions)
}

// ExpiredAt reports whether the identity had lapsed by now. A zero
// ExpiresAt never lapses.
func (id *Identity) ExpiredAt(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
