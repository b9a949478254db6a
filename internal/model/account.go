package model

import "time"

// Account represents an application identity as stored in the `accounts`
// table. The password is stored only as a bcrypt hash. A 2FA secret is
// present as soon as enrollment starts, but TwoFactorEnabled flips true only
// after the holder has proven possession of the secret with a valid code.
//
// Accounts are never hard-deleted by this subsystem; deactivation is a
// domain-layer concern expressed through IsActive.
type Account struct {
	ID              uint64     // accounts.id
	Name            string     // accounts.name (display name)
	Email           string     // accounts.email (unique)
	PasswordHash    string     // accounts.password_hash
	RoleID          uint64     // accounts.role_id (references roles.id)
	Verified        bool       // accounts.verified (email confirmed)
	IsActive        bool       // accounts.is_active
	TwoFactorSecret *string    // accounts.two_factor_secret (nullable, base32)
	TwoFactorOn     bool       // accounts.two_factor_enabled
	CreatedAt       time.Time  // accounts.created_at
	UpdatedAt       time.Time  // accounts.updated_at
}

// Role maps a numeric id to a named collection of permissions. Every account
// references exactly one role.
type Role struct {
	ID          uint64 // roles.id
	Name        string // roles.name (unique, e.g. STUDENT)
	Description string // roles.description
}

// Permission is an opaque capability code plus descriptive metadata. The
// code is the only part consulted by the permission gate.
type Permission struct {
	ID          uint64 // permissions.id
	Code        string // permissions.code (unique, e.g. USER_MANAGE)
	Name        string // permissions.name
	Description string // permissions.description
}

// RolePermission is a row in the role_permissions join table.
type RolePermission struct {
	RoleID       uint64 // role_permissions.role_id
	PermissionID uint64 // role_permissions.permission_id
}

// RefreshSession models an entry in the `refresh_sessions` table. One row is
// inserted per signin; rows are only ever mutated to set revoked_at. The
// plain token never touches the database, only its SHA-256 hash. Expiry is
// recorded for the out-of-band reaper, but liveness checks re-derive it from
// the signed token itself so there is a single clock.
type RefreshSession struct {
	ID        uint64     // refresh_sessions.id
	AccountID uint64     // refresh_sessions.account_id
	TokenHash string     // refresh_sessions.token_hash (SHA-256 hex digest)
	ExpiresAt time.Time  // refresh_sessions.expires_at
	RevokedAt *time.Time // refresh_sessions.revoked_at (nullable)
	CreatedAt time.Time  // refresh_sessions.created_at
}
