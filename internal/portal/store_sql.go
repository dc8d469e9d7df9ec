package portal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SQLStore keeps the snapshot in one versioned row of portal_state.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	key    string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, key: StateKey}
}

func (s *SQLStore) Load(ctx context.Context) (SystemData, int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data, version FROM portal_state WHERE key=$1`, s.key)
	var raw string
	var version int64
	if err := row.Scan(&raw, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DefaultData(), 0, nil
		}
		return SystemData{}, 0, err
	}
	d, err := decodeSnapshot([]byte(raw))
	if err != nil {
		return SystemData{}, 0, err
	}
	return d, version, nil
}

func (s *SQLStore) Save(ctx context.Context, data SystemData, expected int64) (int64, error) {
	buf, err := json.Marshal(data)
	if err != nil {
		return 0, err
	}
	now := time.Now().Unix()

	switch {
	case expected == AnyVersion:
		var v int64
		err := s.db.QueryRowContext(ctx, `INSERT INTO portal_state (key,data,version,updated_at)
			VALUES ($1,$2,1,$3)
			ON CONFLICT (key) DO UPDATE SET data=EXCLUDED.data, version=portal_state.version+1, updated_at=EXCLUDED.updated_at
			RETURNING version`, s.key, string(buf), now).Scan(&v)
		return v, err

	case expected == 0:
		res, err := s.db.ExecContext(ctx, `INSERT INTO portal_state (key,data,version,updated_at)
			VALUES ($1,$2,1,$3) ON CONFLICT (key) DO NOTHING`, s.key, string(buf), now)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return 0, err
		} else if n == 0 {
			return 0, ErrConflict
		}
		return 1, nil

	default:
		res, err := s.db.ExecContext(ctx, `UPDATE portal_state SET data=$1, version=version+1, updated_at=$2
			WHERE key=$3 AND version=$4`, string(buf), now, s.key, expected)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return 0, err
		} else if n == 0 {
			return 0, ErrConflict
		}
		return expected + 1, nil
	}
}
