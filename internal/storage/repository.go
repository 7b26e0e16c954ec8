package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"timetracker/internal/core"
	"timetracker/internal/log"
	"timetracker/internal/store"
)

var (
	_ store.ActivityStore = (*SQLiteRepository)(nil)
	_ store.HealthChecker = (*SQLiteRepository)(nil)
)

// SQLiteRepository stores activities in a single table keyed by user and day.
type SQLiteRepository struct {
	db     *sqlx.DB
	logger *log.Logger
	now    func() time.Time
}

// activityRow mirrors the activities table. Minutes is scanned untyped because
// SQLite keeps whatever was written, including legacy text values.
type activityRow struct {
	ID        string        `db:"id"`
	UserID    string        `db:"user_id"`
	Day       string        `db:"day"`
	Name      string        `db:"name"`
	Category  string        `db:"category"`
	Minutes   any           `db:"minutes"`
	CreatedAt sql.NullInt64 `db:"created_at"`
}

func (r activityRow) toActivity() core.Activity {
	a := core.Activity{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Minutes:  core.CoerceMinutes(r.Minutes),
	}
	if r.CreatedAt.Valid && r.CreatedAt.Int64 > 0 {
		a.CreatedAt = time.UnixMilli(r.CreatedAt.Int64).UTC()
	}
	return a
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.NewDiscard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const listActivitiesSQL = `
SELECT id, user_id, day, name, category, minutes, created_at
FROM activities
WHERE user_id = ? AND day = ?
ORDER BY COALESCE(created_at, 0), rowid`

func (r *SQLiteRepository) ListActivities(ctx context.Context, scope core.Scope) ([]core.Activity, error) {
	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, listActivitiesSQL, scope.UserID, scope.Date.String()); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	out := make([]core.Activity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toActivity())
	}
	return out, nil
}

func (r *SQLiteRepository) CreateActivity(ctx context.Context, scope core.Scope, in core.ActivityInput) (core.Activity, error) {
	in = in.Normalize()
	created := r.now().UTC().Truncate(time.Millisecond)
	row := activityRow{
		ID:        uuid.NewString(),
		UserID:    scope.UserID,
		Day:       scope.Date.String(),
		Name:      in.Name,
		Category:  in.Category,
		Minutes:   in.Minutes,
		CreatedAt: sql.NullInt64{Int64: created.UnixMilli(), Valid: true},
	}
	_, err := r.db.NamedExecContext(ctx, `
INSERT INTO activities (id, user_id, day, name, category, minutes, created_at)
VALUES (:id, :user_id, :day, :name, :category, :minutes, :created_at)`, row)
	if err != nil {
		return core.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	r.logger.DebugContext(ctx, "Activity saved to SQLite",
		log.FieldActivityID, row.ID,
		log.FieldUserID, scope.UserID,
		log.FieldDate, row.Day,
		log.FieldMinutes, in.Minutes)
	return row.toActivity(), nil
}

func (r *SQLiteRepository) UpdateActivity(ctx context.Context, scope core.Scope, id string, in core.ActivityInput) error {
	in = in.Normalize()
	res, err := r.db.ExecContext(ctx, `
UPDATE activities SET name = ?, category = ?, minutes = ?, updated_at = ?
WHERE id = ? AND user_id = ? AND day = ?`,
		in.Name, in.Category, in.Minutes, r.now().UnixMilli(), id, scope.UserID, scope.Date.String())
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return requireRow(res, id)
}

func (r *SQLiteRepository) DeleteActivity(ctx context.Context, scope core.Scope, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activities WHERE id = ? AND user_id = ? AND day = ?`,
		id, scope.UserID, scope.Date.String())
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return requireRow(res, id)
}

// ListDays returns the days a user has activities for, most recent first.
func (r *SQLiteRepository) ListDays(ctx context.Context, userID string) ([]string, error) {
	var days []string
	err := r.db.SelectContext(ctx, &days,
		`SELECT DISTINCT day FROM activities WHERE user_id = ? ORDER BY day DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	return nil
}
