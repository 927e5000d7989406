// Package qrtoken produces and verifies the signed, time-bound QR
// payloads that prove a room's active check-in window.  Tokens are
// tamper-evident but not confidential: the wire form is
// base64(JSON {data:{room_id, code, expires_at}, signature}) where the
// signature is an HMAC-SHA256 over a canonical serialization of the
// data.  Verification additionally requires a matching active
// persisted token so that a refresh revokes everything issued before
// it.
package qrtoken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// Verification failures, from outermost to innermost check.  Handlers
// surface these as user-facing messages without any state change.
var (
	ErrMalformedToken     = errors.New("invalid token format")
	ErrIncompleteData     = errors.New("token data incomplete")
	ErrSignatureMismatch  = errors.New("token signature mismatch")
	ErrMalformedExpiry    = errors.New("token expiry malformed")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenNotRecognized = errors.New("token not recognized")
)

// Payload is the signed portion of a token.  ExpiresAt is carried as a
// string because the signature covers its exact textual form.
type Payload struct {
	RoomID    uint64 `json:"room_id"`
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}

// Envelope is the full wire structure. Data is a pointer so that a
// missing "data" key can be told apart from an empty one.
type Envelope struct {
	Data      *Payload `json:"data"`
	Signature string   `json:"signature"`
}

// Store persists issued tokens and resolves the active one during
// verification.  FindActive returns (nil, nil) when no active token
// matches; a non-nil error means the lookup itself failed.
type Store interface {
	Issue(ctx context.Context, roomID uint64, code string, expiresAt time.Time) (*model.QRCode, error)
	FindActive(ctx context.Context, roomID uint64, code string) (*model.QRCode, error)
}

// Codec signs, encodes and verifies room tokens.  The secret comes
// from configuration; the clock is replaceable for tests.
type Codec struct {
	secret []byte
	store  Store
	now    func() time.Time
}

// New returns a Codec signing with the given secret and validating
// against the given store.
func New(secret string, store Store) *Codec {
	return &Codec{secret: []byte(secret), store: store, now: time.Now}
}

// NewCode returns a fresh random token code (uuid hex, 32 chars).
func NewCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Generate issues a new token for the room: a random unique code with
// an absolute expiry ttl from now, persisted as the room's single
// active token (prior active tokens are deactivated in the same
// transaction).  It returns the encoded wire string together with the
// persisted record.
func (c *Codec) Generate(ctx context.Context, roomID uint64, ttl time.Duration) (string, *model.QRCode, error) {
	code := NewCode()
	expiresAt := c.now().UTC().Truncate(time.Second).Add(ttl)
	rec, err := c.store.Issue(ctx, roomID, code, expiresAt)
	if err != nil {
		return "", nil, err
	}
	return c.EncodeRecord(rec), rec, nil
}

// EncodeRecord packages an already-persisted token into the wire form.
// Used when re-displaying a room's current active token.
func (c *Codec) EncodeRecord(rec *model.QRCode) string {
	p := Payload{
		RoomID:    rec.RoomID,
		Code:      rec.Code,
		ExpiresAt: rec.ExpiresAt.UTC().Format(time.RFC3339),
	}
	env := Envelope{Data: &p, Signature: c.sign(p)}
	return Encode(env)
}

// Encode serializes an envelope to its opaque wire string.
func Encode(env Envelope) string {
	raw, _ := json.Marshal(env)
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode reverses Encode. It fails with ErrMalformedToken when the
// base64 wrapping or the JSON structure is invalid.
func Decode(encoded string) (*Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedToken
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedToken
	}
	return &env, nil
}

// Verify checks an encoded token end to end and returns the matching
// persisted record.  The order of checks mirrors the issuing side:
// structure, signature, field presence, expiry, then the persistence
// match that defends against replay of superseded tokens.
func (c *Codec) Verify(ctx context.Context, encoded string) (*model.QRCode, error) {
	env, err := Decode(encoded)
	if err != nil {
		return nil, err
	}
	if env.Data == nil || env.Signature == "" {
		return nil, ErrIncompleteData
	}
	if !hmac.Equal([]byte(c.sign(*env.Data)), []byte(env.Signature)) {
		return nil, ErrSignatureMismatch
	}
	if env.Data.RoomID == 0 || env.Data.Code == "" || env.Data.ExpiresAt == "" {
		return nil, ErrIncompleteData
	}
	expiresAt, err := parseExpiry(env.Data.ExpiresAt)
	if err != nil {
		return nil, ErrMalformedExpiry
	}
	if c.now().UTC().After(expiresAt) {
		return nil, ErrTokenExpired
	}
	rec, err := c.store.FindActive(ctx, env.Data.RoomID, env.Data.Code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTokenNotRecognized
	}
	return rec, nil
}

// sign computes the hex HMAC-SHA256 of the canonical payload form.
func (c *Codec) sign(p Payload) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(canonical(p)))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonical renders the payload with lexically ordered keys and fixed
// separators so both sides always sign the same bytes regardless of
// struct field order.  Existing stored tokens were signed over this
// exact shape.
func canonical(p Payload) string {
	return fmt.Sprintf(`{"code": %q, "expires_at": %q, "room_id": %d}`,
		p.Code, p.ExpiresAt, p.RoomID)
}

// parseExpiry accepts RFC3339 and the zone-less ISO form that older
// issuers produced (interpreted as UTC).
func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
