package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ykvlv/duty-bot/internal/domain"
)

// SQLiteRepo implements BindingRepo and HistoryRepo on an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// BindMessage records which schedule a posted message shows.
// Re-binding the same message overwrites the previous row.
func (r *SQLiteRepo) BindMessage(ctx context.Context, b Binding) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_messages (chat_id, message_id, kind, schedule_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO UPDATE SET
			kind          = excluded.kind,
			schedule_date = excluded.schedule_date,
			created_at    = excluded.created_at`,
		b.ChatID, b.MessageID, string(b.Kind), b.Date, toUnix(b.CreatedAt),
	)
	return err
}

// LookupMessage returns the binding of a message or ErrNotFound.
func (r *SQLiteRepo) LookupMessage(ctx context.Context, chatID int64, messageID int) (*Binding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT kind, schedule_date, created_at
		FROM schedule_messages
		WHERE chat_id = ? AND message_id = ?`,
		chatID, messageID,
	)

	var (
		kind      string
		date      string
		createdAt int64
	)
	if err := row.Scan(&kind, &date, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	k, err := domain.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return &Binding{
		ChatID:    chatID,
		MessageID: messageID,
		Kind:      k,
		Date:      date,
		CreatedAt: fromUnix(createdAt),
	}, nil
}

// AddDailyHours adds one day's tally to the history, accumulating when the
// day is folded more than once (e.g. a forced rollover on top of the nightly one).
func (r *SQLiteRepo) AddDailyHours(ctx context.Context, chatID int64, day time.Time, hours map[int64]int) error {
	if len(hours) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	key := domain.DateKey(day)
	for userID, h := range hours {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_hours (chat_id, user_id, day, hours)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(chat_id, user_id, day) DO UPDATE SET
				hours = hours + excluded.hours`,
			chatID, userID, key, h,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SumHours totals hours per user for days in [from, to], inclusive.
func (r *SQLiteRepo) SumHours(ctx context.Context, chatID int64, from, to time.Time) (map[int64]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, SUM(hours)
		FROM daily_hours
		WHERE chat_id = ?
		  AND day >= ?
		  AND day <= ?
		GROUP BY user_id`,
		chatID, domain.DateKey(from), domain.DateKey(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]int)
	for rows.Next() {
		var (
			userID int64
			hours  int
		)
		if err := rows.Scan(&userID, &hours); err != nil {
			return nil, err
		}
		res[userID] = hours
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
