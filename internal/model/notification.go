package model

import "time"

// Notification is an append-only per-user message written by the
// violation engine and the check-in flows.  The only mutation ever
// applied is marking it read.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  Message   – human-readable text.
//  IsRead    – whether the user has acknowledged it.
//  CreatedAt – creation timestamp.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	Message   string    // notifications.message
	IsRead    bool      // notifications.is_read
	CreatedAt time.Time // notifications.created_at
}
