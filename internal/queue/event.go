// Package queue defines message payloads exchanged over the message
// broker, the publisher that emits them and the background consumer
// that records them.
package queue

// ViolationRecordedEvent is published when the sweep marks a
// reservation as a no-show. It carries enough for downstream
// consumers to log or notify without querying the primary database.
type ViolationRecordedEvent struct {
	ReservationID  uint64 `json:"reservation_id"`
	StudentID      uint64 `json:"student_id"`
	ViolationCount int    `json:"violation_count"`
	BannedUntil    string `json:"banned_until,omitempty"`
	RecordedAt     string `json:"recorded_at"`
}
