package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// TokenIssuer signs and persists room tokens.
type TokenIssuer interface {
	Generate(ctx context.Context, roomID uint64, ttl time.Duration) (string, *model.QRCode, error)
	EncodeRecord(rec *model.QRCode) string
}

// QRStore resolves a room's current active token.
type QRStore interface {
	ActiveByRoom(ctx context.Context, roomID uint64) (*model.QRCode, error)
}

// RoomStore resolves rooms and enumerates them for the refresh task.
type RoomStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	List(ctx context.Context) ([]model.Room, error)
}

// RoomQR serves the per-room rotating check-in token. Each room
// carries its own refresh interval; the scheduler rotates tokens that
// lapse between requests.
type RoomQR struct {
	issuer TokenIssuer
	store  QRStore
	rooms  RoomStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRoomQR(issuer TokenIssuer, store QRStore, rooms RoomStore, logger *zap.Logger) *RoomQR {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomQR{issuer: issuer, store: store, rooms: rooms, logger: logger, now: time.Now}
}

// RoomToken is a displayable token with its remaining lifetime.
type RoomToken struct {
	RoomID    uint64
	Token     string
	ExpiresAt time.Time
	ExpiresIn int // seconds until expiry
}

func (s *RoomQR) roomTTL(room *model.Room) time.Duration {
	min := room.QRRefreshMin
	if min <= 0 {
		min = 5
	}
	return time.Duration(min) * time.Minute
}

func (s *RoomQR) token(rec *model.QRCode, encoded string) *RoomToken {
	remaining := int(rec.ExpiresAt.Sub(s.now().UTC()).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	return &RoomToken{
		RoomID:    rec.RoomID,
		Token:     encoded,
		ExpiresAt: rec.ExpiresAt,
		ExpiresIn: remaining,
	}
}

// Current returns the room's active token, issuing a fresh one when
// none exists or the active one has expired.
func (s *RoomQR) Current(ctx context.Context, roomID uint64) (*RoomToken, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.ActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if rec != nil && !rec.Expired(s.now().UTC()) {
		return s.token(rec, s.issuer.EncodeRecord(rec)), nil
	}
	encoded, rec, err := s.issuer.Generate(ctx, roomID, s.roomTTL(room))
	if err != nil {
		return nil, err
	}
	return s.token(rec, encoded), nil
}

// Refresh unconditionally issues a new token for the room, revoking
// whatever was active before.
func (s *RoomQR) Refresh(ctx context.Context, roomID uint64) (*RoomToken, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	encoded, rec, err := s.issuer.Generate(ctx, roomID, s.roomTTL(room))
	if err != nil {
		return nil, err
	}
	return s.token(rec, encoded), nil
}

// RotateExpired walks every room and replaces tokens that have lapsed.
// The scheduler calls this each tick so a displayed code is never
// stale for more than one tick past its expiry.
func (s *RoomQR) RotateExpired(ctx context.Context) error {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	rotated := 0
	for i := range rooms {
		room := &rooms[i]
		rec, err := s.store.ActiveByRoom(ctx, room.ID)
		if err != nil {
			s.logger.Error("load active token failed",
				zap.Uint64("room_id", room.ID), zap.Error(err))
			continue
		}
		if rec != nil && !rec.Expired(now) {
			continue
		}
		if _, _, err := s.issuer.Generate(ctx, room.ID, s.roomTTL(room)); err != nil {
			s.logger.Error("token rotation failed",
				zap.Uint64("room_id", room.ID), zap.Error(err))
			continue
		}
		rotated++
	}
	if rotated > 0 {
		s.logger.Info("room tokens rotated", zap.Int("count", rotated))
	}
	return nil
}
