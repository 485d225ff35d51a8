package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) SavePosition(ctx context.Context, path string, micros int64) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions(path, micros, updated_at) VALUES (?,?,?)
		ON CONFLICT(path) DO UPDATE SET micros=excluded.micros, updated_at=excluded.updated_at`,
		path, micros, now,
	)
	return err
}

// GetPosition returns the saved position for path, or nil when none
// has been recorded.
func (r *Repo) GetPosition(ctx context.Context, path string) (*Position, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT path, micros, updated_at FROM positions WHERE path=?`, path)

	var p Position
	var updated int64
	if err := row.Scan(&p.Path, &p.Micros, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

func (r *Repo) DeletePosition(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE path=?`, path)
	return err
}
