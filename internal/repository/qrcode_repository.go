package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// QRCodeRepo persists rotating room check-in codes. At most one row
// per room is active: Issue deactivates the predecessors in the same
// transaction that inserts the replacement.
type QRCodeRepo struct{ db *sql.DB }

func NewQRCodeRepo(db *sql.DB) *QRCodeRepo { return &QRCodeRepo{db: db} }

const qrColumns = `id, room_id, code, is_active, created_at, expires_at`

func scanQRCode(scan func(dest ...any) error) (*model.QRCode, error) {
	var qc model.QRCode
	if err := scan(&qc.ID, &qc.RoomID, &qc.Code, &qc.IsActive, &qc.CreatedAt, &qc.ExpiresAt); err != nil {
		return nil, err
	}
	qc.CreatedAt = qc.CreatedAt.UTC()
	qc.ExpiresAt = qc.ExpiresAt.UTC()
	return &qc, nil
}

// Issue stores a fresh code for the room, retiring any active
// predecessor, and returns the stored row.
func (r *QRCodeRepo) Issue(ctx context.Context, roomID uint64, code string, expiresAt time.Time) (*model.QRCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE qrcodes SET is_active = 0 WHERE room_id = ? AND is_active = 1`, roomID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO qrcodes (room_id, code, is_active, expires_at) VALUES (?, ?, 1, ?)`,
		roomID, code, expiresAt.UTC().Format(sqlTime))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx,
		"SELECT "+qrColumns+" FROM qrcodes WHERE id = ?", id)
	qc, err := scanQRCode(row.Scan)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return qc, nil
}

// FindActive returns the active row matching (room, code), or
// (nil, nil) when no such row exists. Absence is an expected verifier
// outcome, not a storage error.
func (r *QRCodeRepo) FindActive(ctx context.Context, roomID uint64, code string) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+qrColumns+" FROM qrcodes WHERE room_id = ? AND code = ? AND is_active = 1",
		roomID, code)
	qc, err := scanQRCode(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return qc, nil
}

// ActiveByRoom returns the room's current active code, or (nil, nil)
// when none has been issued yet.
func (r *QRCodeRepo) ActiveByRoom(ctx context.Context, roomID uint64) (*model.QRCode, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+qrColumns+" FROM qrcodes WHERE room_id = ? AND is_active = 1 ORDER BY id DESC LIMIT 1",
		roomID)
	qc, err := scanQRCode(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return qc, nil
}
