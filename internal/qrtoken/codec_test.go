package qrtoken

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// memStore keeps issued tokens in memory, mirroring the one-active-
// token-per-room behaviour of the SQL store.
type memStore struct {
	nextID uint64
	rows   []*model.QRCode
}

func (s *memStore) Issue(_ context.Context, roomID uint64, code string, expiresAt time.Time) (*model.QRCode, error) {
	for _, r := range s.rows {
		if r.RoomID == roomID {
			r.IsActive = false
		}
	}
	s.nextID++
	rec := &model.QRCode{
		ID:        s.nextID,
		RoomID:    roomID,
		Code:      code,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	s.rows = append(s.rows, rec)
	return rec, nil
}

func (s *memStore) FindActive(_ context.Context, roomID uint64, code string) (*model.QRCode, error) {
	for _, r := range s.rows {
		if r.RoomID == roomID && r.Code == code && r.IsActive {
			return r, nil
		}
	}
	return nil, nil
}

func newTestCodec() (*Codec, *memStore) {
	store := &memStore{}
	return New("test-secret", store), store
}

func TestGenerateRoundTrip(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	encoded, rec, err := c.Generate(ctx, 7, 30*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, rec)

	env, err := Decode(encoded)
	require.NoError(t, err)
	require.NotNil(t, env.Data)
	assert.Equal(t, uint64(7), env.Data.RoomID)
	assert.Equal(t, rec.Code, env.Data.Code)

	got, err := c.Verify(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	encoded, _, err := c.Generate(ctx, 1, time.Hour)
	require.NoError(t, err)

	env, err := Decode(encoded)
	require.NoError(t, err)
	// Point the token at a different room while keeping the original
	// signature. Even with a valid expiry this must fail.
	env.Data.RoomID = 2
	_, err = c.Verify(ctx, Encode(*env))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	issuer := New("secret-a", store)
	verifier := New("secret-b", store)

	encoded, _, err := issuer.Generate(ctx, 1, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(ctx, encoded)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerifyRejectsExpired(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	encoded, _, err := c.Generate(ctx, 1, 10*time.Minute)
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = c.Verify(ctx, encoded)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsSupersededToken(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	first, _, err := c.Generate(ctx, 3, time.Hour)
	require.NoError(t, err)

	// A refresh deactivates the first token; replaying it must fail
	// even though its signature and expiry are still valid.
	_, _, err = c.Generate(ctx, 3, time.Hour)
	require.NoError(t, err)

	_, err = c.Verify(ctx, first)
	assert.ErrorIs(t, err, ErrTokenNotRecognized)
}

func TestVerifyMalformedInputs(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	_, err := c.Verify(ctx, "%%%not-base64%%%")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = c.Verify(ctx, base64.StdEncoding.EncodeToString([]byte("[1,2,3]")))
	assert.ErrorIs(t, err, ErrMalformedToken)

	// Structurally valid JSON but no data object.
	_, err = c.Verify(ctx, base64.StdEncoding.EncodeToString([]byte(`{"signature":"abc"}`)))
	assert.ErrorIs(t, err, ErrIncompleteData)
}

func TestVerifyMalformedExpiry(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	p := Payload{RoomID: 5, Code: NewCode(), ExpiresAt: "not-a-time"}
	env := Envelope{Data: &p, Signature: c.sign(p)}
	_, err := c.Verify(ctx, Encode(env))
	assert.ErrorIs(t, err, ErrMalformedExpiry)
}

func TestVerifyMissingFields(t *testing.T) {
	c, _ := newTestCodec()
	ctx := context.Background()

	p := Payload{RoomID: 5, Code: "", ExpiresAt: time.Now().UTC().Add(time.Hour).Format(time.RFC3339)}
	env := Envelope{Data: &p, Signature: c.sign(p)}
	_, err := c.Verify(ctx, Encode(env))
	assert.ErrorIs(t, err, ErrIncompleteData)
}

func TestCanonicalFormIsStable(t *testing.T) {
	p := Payload{RoomID: 12, Code: "abc", ExpiresAt: "2026-01-02T15:04:05Z"}
	assert.Equal(t,
		`{"code": "abc", "expires_at": "2026-01-02T15:04:05Z", "room_id": 12}`,
		canonical(p))
}
