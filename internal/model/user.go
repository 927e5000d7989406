package model

import "time"

// User roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents an application user record as stored in the
// `users` table.  The violation counter only ever grows; BannedUntil
// temporarily suspends booking and check-in while `now` is before it.
//
// Fields:
//  ID             – primary key identifier.
//  Username       – unique login name.
//  PasswordHash   – bcrypt hashed password.
//  Role           – "student" or "admin".
//  Name           – display name.
//  Avatar         – optional avatar URL.
//  ViolationCount – monotonic no-show counter.
//  BannedUntil    – booking/check-in refused while now < BannedUntil.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64     // users.id
	Username       string     // users.username
	PasswordHash   string     // users.password_hash
	Role           string     // users.role
	Name           string     // users.name
	Avatar         *string    // users.avatar (nullable)
	ViolationCount int        // users.violation_count
	BannedUntil    *time.Time // users.banned_until (nullable)
	CreatedAt      time.Time  // users.created_at
	UpdatedAt      time.Time  // users.updated_at
}

// Banned reports whether the user's booking ban is still in effect.
func (u *User) Banned(now time.Time) bool {
	return u.BannedUntil != nil && now.Before(*u.BannedUntil)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
