package model

import "time"

// QRCode is the persisted form of a room's signed check-in token.
// Exactly one row per room is active at a time; issuing a new token
// deactivates the previous active ones.  Expiry is an absolute
// wall-clock time, not sliding.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room this token admits into.
//  Code      – unique random code embedded in the signed payload.
//  IsActive  – false once superseded by a refresh.
//  CreatedAt – creation timestamp.
//  ExpiresAt – absolute expiry (UTC).
type QRCode struct {
	ID        uint64    // qrcodes.id
	RoomID    uint64    // qrcodes.room_id
	Code      string    // qrcodes.code
	IsActive  bool      // qrcodes.is_active
	CreatedAt time.Time // qrcodes.created_at
	ExpiresAt time.Time // qrcodes.expires_at
}

// Expired reports whether the token's absolute expiry has passed.
func (q *QRCode) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}
