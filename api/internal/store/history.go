package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mahjong-advisor/api/internal/tiles"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

var ErrNoDB = errors.New("history: db is nil")

// Entry is one completed analysis.
type Entry struct {
	ID         int64      `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	ImageHash  string     `json:"image_hash"`
	Backend    string     `json:"backend"`
	Tiles      tiles.Hand `json:"tiles"`
	Suggestion string     `json:"suggestion"`
	Detected   bool       `json:"detected"`
}

type HistoryRepo struct {
	DB *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

func (r *HistoryRepo) ensureSchema(ctx context.Context) error {
	if r == nil || r.DB == nil {
		return ErrNoDB
	}
	r.schemaOnce.Do(func() {
		_, r.schemaErr = r.DB.ExecContext(ctx, `
create table if not exists analyses (
    id bigserial primary key,
    created_at timestamptz not null default now(),
    image_hash text not null,
    backend text not null,
    tiles_json jsonb not null,
    suggestion text not null,
    detected boolean not null
);
create index if not exists idx_analyses_created_at on analyses(created_at desc);
`)
	})
	return r.schemaErr
}

// Record appends e. ID and CreatedAt are assigned by the database.
func (r *HistoryRepo) Record(ctx context.Context, e Entry) error {
	if err := r.ensureSchema(ctx); err != nil {
		return err
	}
	hand := e.Tiles
	if hand == nil {
		hand = tiles.Hand{}
	}
	js, err := json.Marshal(hand)
	if err != nil {
		return fmt.Errorf("marshal tiles: %w", err)
	}
	const q = `
insert into analyses(image_hash, backend, tiles_json, suggestion, detected)
values ($1,$2,$3,$4,$5)`
	_, err = r.DB.ExecContext(ctx, q, e.ImageHash, e.Backend, js, e.Suggestion, e.Detected)
	return err
}

// Recent returns up to limit entries, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := r.ensureSchema(ctx); err != nil {
		return nil, err
	}
	const q = `
select id, created_at, image_hash, backend, tiles_json, suggestion, detected
from analyses
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			js []byte
		)
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.ImageHash, &e.Backend, &js, &e.Suggestion, &e.Detected); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &e.Tiles); err != nil {
			// a broken row should not hide the rest of the history
			e.Tiles = tiles.Hand{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClampLimit maps non-positive values to the default and caps the rest.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
