package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/iliyamo/study-room-reservation/internal/model"
)

// ErrSettingNotFound is returned when a setting key does not exist.
var ErrSettingNotFound = errors.New("setting not found")

// SettingRepo reads and updates operator-tunable system settings.
type SettingRepo struct{ db *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{db: db} }

// Get returns the setting stored under key.
func (r *SettingRepo) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	var s model.SystemSetting
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT `key`, value, description FROM system_settings WHERE `key` = ?", key).
		Scan(&s.Key, &s.Value, &desc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	s.Description = desc.String
	return &s, nil
}

// GetInt returns the integer value stored under key, falling back to
// def when the key is absent or the stored value does not parse. The
// sweep must never stall on a misconfigured row.
func (r *SettingRepo) GetInt(ctx context.Context, key string, def int) (int, error) {
	s, err := r.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return def, nil
		}
		return def, err
	}
	v, err := strconv.Atoi(s.Value)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// All returns every setting ordered by key.
func (r *SettingRepo) All(ctx context.Context) ([]model.SystemSetting, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT `key`, value, description FROM system_settings ORDER BY `key`")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.SystemSetting, 0)
	for rows.Next() {
		var s model.SystemSetting
		var desc sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &desc); err != nil {
			return nil, err
		}
		s.Description = desc.String
		result = append(result, s)
	}
	return result, rows.Err()
}

// Update overwrites the value of an existing setting. Unknown keys are
// rejected with ErrSettingNotFound rather than inserted.
func (r *SettingRepo) Update(ctx context.Context, key, value string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE system_settings SET value = ? WHERE `key` = ?", value, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSettingNotFound
	}
	return nil
}
