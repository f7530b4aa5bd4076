package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/clinic-portal/internal/session"
)

const createSessionsTable = `CREATE TABLE IF NOT EXISTS portal_sessions (
	id         CHAR(36)     NOT NULL PRIMARY KEY,
	data       MEDIUMTEXT   NOT NULL,
	expires_at DATETIME     NOT NULL,
	updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_portal_sessions_expires (expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// SessionRepo stores session values as a JSON document per row.  It
// satisfies session.Store.
type SessionRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db, now: time.Now}
}

// Migrate creates the session table if it does not exist.
func (r *SessionRepo) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create portal_sessions: %w", err)
	}
	return nil
}

// Load returns the values of a live session.  Expired rows read as absent.
func (r *SessionRepo) Load(ctx context.Context, id string) (map[string]string, error) {
	var (
		data      string
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT data, expires_at FROM portal_sessions WHERE id=? LIMIT 1", id).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if r.now().UTC().After(expiresAt) {
		_ = r.Delete(ctx, id)
		return nil, session.ErrNoSession
	}
	vals, err := decodeValues(data)
	if err != nil {
		_ = r.Delete(ctx, id)
		return nil, err
	}
	return vals, nil
}

// Save upserts the row.  An empty value set deletes it.
func (r *SessionRepo) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	if len(values) == 0 {
		return r.Delete(ctx, id)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	exp := r.now().UTC().Add(ttl)
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO portal_sessions (id, data, expires_at) VALUES (?,?,?) "+
			"ON DUPLICATE KEY UPDATE data=VALUES(data), expires_at=VALUES(expires_at)",
		id, string(data), exp)
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM portal_sessions WHERE id=?", id)
	return err
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM portal_sessions WHERE expires_at < ?", r.now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeValues(data string) (map[string]string, error) {
	vals := map[string]string{}
	if err := json.Unmarshal([]byte(data), &vals); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return vals, nil
}
