package model

import "time"

// Room represents a study room that students reserve seats in and
// check into via the room's rotating QR code.  Rooms are created by
// admin tooling and are never deleted while seats or reservations
// still reference them.  This struct corresponds to a row in the
// `study_rooms` table.
//
// Fields:
//  ID              – primary key identifier.
//  Name            – display name of the room.
//  Location        – building/floor description shown on check-in.
//  Capacity        – number of seats the room is meant to hold.
//  Description     – optional free-form description.
//  QRRefreshMin    – how often the room's QR token rotates, in minutes.
//  AdminID         – managing admin user (nil when system-managed).
//  CreatedAt       – timestamp when the room was created.
//  UpdatedAt       – timestamp of last update.
type Room struct {
	ID           uint64    // study_rooms.id
	Name         string    // study_rooms.name
	Location     string    // study_rooms.location
	Capacity     uint32    // study_rooms.capacity
	Description  *string   // study_rooms.description (nullable)
	QRRefreshMin int       // study_rooms.qrcode_refresh_interval
	AdminID      *uint64   // study_rooms.admin_id (nullable)
	CreatedAt    time.Time // study_rooms.created_at
	UpdatedAt    time.Time // study_rooms.updated_at
}
