package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetracker/internal/core"
	"timetracker/internal/store"
)

var (
	_ store.ActivityStore = (*Repository)(nil)
	_ store.HealthChecker = (*Repository)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS activities (
    id         UUID PRIMARY KEY,
    user_id    TEXT NOT NULL,
    day        DATE NOT NULL,
    name       TEXT NOT NULL,
    category   TEXT NOT NULL DEFAULT '',
    minutes    INTEGER NOT NULL,
    created_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_activities_user_day ON activities (user_id, day, created_at);`

// Repository provides Postgres-backed persistence for activities.
type Repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to url, verifies the connection and ensures the schema exists.
func Open(ctx context.Context, url string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	r := NewRepository(pool)
	if err := r.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, now: time.Now}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	const query = `SELECT id::text, name, category, minutes, created_at
        FROM activities WHERE user_id=$1 AND day=$2
        ORDER BY created_at NULLS FIRST, id`

	rows, err := r.pool.Query(ctx, query, scope.UserID, scope.Date.Time)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []core.Activity
	for rows.Next() {
		var (
			a       core.Activity
			minutes int
			created *time.Time
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &minutes, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Minutes = core.CoerceMinutes(minutes)
		if created != nil {
			a.CreatedAt = created.UTC()
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	in = in.Normalize()
	a := core.Activity{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Category:  in.Category,
		Minutes:   in.Minutes,
		CreatedAt: r.now().UTC().Truncate(time.Microsecond),
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO activities (id, user_id, day, name, category, minutes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, scope.UserID, scope.Date.Time, a.Name, a.Category, a.Minutes, a.CreatedAt)
	if err != nil {
		return core.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

func (r *Repository) UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	in = in.Normalize()
	tag, err := r.pool.Exec(ctx, `UPDATE activities SET name=$1, category=$2, minutes=$3, updated_at=$4
        WHERE id=$5 AND user_id=$6 AND day=$7`,
		in.Name, in.Category, in.Minutes, r.now().UTC(), id, scope.UserID, scope.Date.Time)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) DeleteActivity(ctx context.Context, scope core.Scope, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id=$1 AND user_id=$2 AND day=$3`,
		id, scope.UserID, scope.Date.Time)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}

// ReplaceDay rewrites a day in one transaction so the table can serve as a mirror.
func (r *Repository) ReplaceDay(ctx context.Context, scope core.Scope, items []core.Activity) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM activities WHERE user_id=$1 AND day=$2`, scope.UserID, scope.Date.Time); err != nil {
		return fmt.Errorf("clear day: %w", err)
	}
	batch := &pgx.Batch{}
	for _, a := range items {
		var created any
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt
		}
		batch.Queue(`INSERT INTO activities (id, user_id, day, name, category, minutes, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.ID, scope.UserID, scope.Date.Time, a.Name, a.Category, a.Minutes, created)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert day: %w", err)
	}
	return tx.Commit(ctx)
}
