package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

const (
	StudentRegistered = "StudentRegistered"
	StudentDeleted    = "StudentDeleted"
	SubjectCreated    = "SubjectCreated"
	SubjectDeleted    = "SubjectDeleted"
	SubjectAssigned   = "SubjectAssigned"
	SubjectUnassigned = "SubjectUnassigned"
	AttemptStarted    = "AttemptStarted"
	AttemptSubmitted  = "AttemptSubmitted"
	AttemptPublished  = "AttemptPublished"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

// Recorder appends domain events. Failures are the caller's to log; they never
// undo the action that produced the event.
type Recorder interface {
	Record(ctx context.Context, typ, key string, payload any) error
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Record(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		typ, key, string(data), time.Now().Unix())
	return err
}

// List returns events for a key in insertion order; an empty key lists everything.
func (r *EventRepo) List(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq, typ, key, data, created_at FROM event_log ORDER BY seq LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT seq, typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY seq LIMIT $2`, key, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LogRecorder writes events to the structured log when no database is configured.
type LogRecorder struct{ Log *zap.Logger }

func (l LogRecorder) Record(_ context.Context, typ, key string, payload any) error {
	l.Log.Info("audit event", zap.String("type", typ), zap.String("key", key), zap.Any("data", payload))
	return nil
}
