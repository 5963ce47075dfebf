package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Entry is one payload the operator copied towards an admin page.
type Entry struct {
	ID          string    `json:"id"`
	Operator    string    `json:"operator,omitempty"`
	Category    string    `json:"category"`
	Environment string    `json:"environment"`
	Payload     string    `json:"payload"`
	AdminURL    string    `json:"admin_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Log records handoffs. It never stores form state.
type Log interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type Nop struct{}

func (Nop) Append(_ context.Context, e Entry) (Entry, error) { return e, nil }
func (Nop) Recent(context.Context, int) ([]Entry, error)     { return nil, nil }

type SQLLog struct{ db *sql.DB }

func NewSQLLog(db *sql.DB) *SQLLog { return &SQLLog{db: db} }

func (l *SQLLog) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO handoff_log (id, operator, category, environment, payload, admin_url, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.Operator, e.Category, e.Environment, e.Payload, e.AdminURL, e.CreatedAt.Unix())
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *SQLLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, operator, category, environment, payload, admin_url, created_at
		 FROM handoff_log ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Operator, &e.Category, &e.Environment, &e.Payload, &e.AdminURL, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(created, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}
