package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// ErrRoomNotFound is returned when a room lookup yields no rows.
var ErrRoomNotFound = errors.New("room not found")

// RoomRepo provides read access to study rooms.  Rooms are managed by
// admin tooling outside this service; the core only reads them.
type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomColumns = `id, name, location, capacity, description,
	qrcode_refresh_interval, admin_id, created_at, updated_at`

func scanRoom(scan func(dest ...any) error) (*model.Room, error) {
	var rm model.Room
	var desc sql.NullString
	var adminID sql.NullInt64
	err := scan(&rm.ID, &rm.Name, &rm.Location, &rm.Capacity, &desc,
		&rm.QRRefreshMin, &adminID, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		rm.Description = &d
	}
	if adminID.Valid {
		a := uint64(adminID.Int64)
		rm.AdminID = &a
	}
	return &rm, nil
}

// GetByID retrieves a room by its id.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM study_rooms WHERE id = ?", id)
	rm, err := scanRoom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

// List returns all rooms ordered by id. The QR refresh task iterates
// this to rotate expired tokens.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+roomColumns+" FROM study_rooms ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rm)
	}
	return result, rows.Err()
}
