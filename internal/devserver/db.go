package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ayoisaiah/codetime/internal/apperr"
	"github.com/ayoisaiah/codetime/internal/metrics"
	"github.com/ayoisaiah/codetime/internal/models"
)

// historyPageSize matches the dashboard's page size.
const historyPageSize = 7

var errUserNotFound = &apperr.Error{
	Message: "user %q not found",
}

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS daily_totals (
    user_id TEXT NOT NULL,
    day TEXT NOT NULL,
    focused_seconds INTEGER NOT NULL DEFAULT 0 CHECK(focused_seconds >= 0),
    total_seconds INTEGER NOT NULL DEFAULT 0 CHECK(total_seconds >= 0),
    source TEXT NOT NULL DEFAULT 'vscode',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, day),
    FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_daily_totals_day ON daily_totals(day);

CREATE TABLE IF NOT EXISTS daily_language_totals (
    user_id TEXT NOT NULL,
    day TEXT NOT NULL,
    language TEXT NOT NULL,
    focused_seconds INTEGER NOT NULL DEFAULT 0 CHECK(focused_seconds >= 0),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, day, language),
    FOREIGN KEY (user_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_daily_language_totals_day ON daily_language_totals(day);
`

// DB is the aggregator's SQLite database.
type DB struct {
	*sql.DB
}

type (
	// HistoryDay is one row of a user's history.
	HistoryDay struct {
		Day            string `json:"day"`
		FocusedSeconds int64  `json:"focused_seconds"`
		TotalSeconds   int64  `json:"total_seconds"`
	}

	// PageMeta describes a page of results.
	PageMeta struct {
		Total      int `json:"total"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	}

	// HistoryPage is a page of a user's history, newest first.
	HistoryPage struct {
		Data []HistoryDay `json:"data"`
		Meta PageMeta     `json:"meta"`
	}

	// LanguageTotal is the focused time spent in one language.
	LanguageTotal struct {
		Language       string `json:"language"`
		FocusedSeconds int64  `json:"focused_seconds"`
	}

	// LeaderboardEntry is one ranked user.
	LeaderboardEntry struct {
		Username       string `json:"username"`
		FocusedSeconds int64  `json:"focused_seconds"`
		TotalSeconds   int64  `json:"total_seconds"`
		Rank           int    `json:"rank"`
	}
)

// OpenDB opens the database at path and creates the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{db}, nil
}

// resolveUser returns the identity of username, creating it if needed.
func resolveUser(ctx context.Context, tx *sql.Tx, username string) (string, error) {
	var id string

	err := tx.QueryRowContext(
		ctx,
		"SELECT id FROM profiles WHERE username = ?",
		username,
	).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.NewString()

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO profiles (id, username) VALUES (?, ?)",
		id,
		username,
	)

	return id, err
}

// Push adds every day of the payload to the stored totals. Totals are
// accumulated, never overwritten, so each delta must be sent exactly once.
func (db *DB) Push(ctx context.Context, p *models.Payload) (*models.SyncResponse, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	userID, err := resolveUser(ctx, tx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	processed := models.Processed{Errors: []string{}}

	for _, d := range p.Data {
		source := d.Source
		if source == "" {
			source = "vscode"
		}

		_, err := tx.ExecContext(ctx, `
INSERT INTO daily_totals (user_id, day, focused_seconds, total_seconds, source)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, day) DO UPDATE SET
    focused_seconds = focused_seconds + excluded.focused_seconds,
    total_seconds = total_seconds + excluded.total_seconds,
    source = excluded.source,
    updated_at = CURRENT_TIMESTAMP`,
			userID, d.Day, d.FocusedSeconds, d.TotalSeconds, source,
		)
		if err != nil {
			return nil, fmt.Errorf("daily totals for %s: %w", d.Day, err)
		}

		processed.DailyTotals++

		metrics.AggregatorUpserts.WithLabelValues("daily_totals").Inc()

		for _, lang := range slices.Sorted(maps.Keys(d.LanguageBreakdown)) {
			secs := d.LanguageBreakdown[lang]
			if secs <= 0 {
				continue
			}

			_, err := tx.ExecContext(ctx, `
INSERT INTO daily_language_totals (user_id, day, language, focused_seconds)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, day, language) DO UPDATE SET
    focused_seconds = focused_seconds + excluded.focused_seconds,
    updated_at = CURRENT_TIMESTAMP`,
				userID, d.Day, lang, secs,
			)
			if err != nil {
				return nil, fmt.Errorf("language totals for %s: %w", d.Day, err)
			}

			processed.LanguageTotals++

			metrics.AggregatorUpserts.WithLabelValues("daily_language_totals").Inc()
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.SyncResponse{
		Success:   true,
		Username:  p.Username,
		UUID:      userID,
		Processed: processed,
	}, nil
}

func (db *DB) userID(ctx context.Context, username string) (string, error) {
	var id string

	err := db.QueryRowContext(
		ctx,
		"SELECT id FROM profiles WHERE username = ?",
		username,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errUserNotFound.Fmt(username)
	}

	return id, err
}

// History returns one page of a user's daily totals, newest first.
func (db *DB) History(ctx context.Context, username string, page int) (*HistoryPage, error) {
	id, err := db.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	page = max(page, 1)

	var total int

	err = db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM daily_totals WHERE user_id = ?",
		id,
	).Scan(&total)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
SELECT day, focused_seconds, total_seconds
FROM daily_totals
WHERE user_id = ?
ORDER BY day DESC
LIMIT ? OFFSET ?`,
		id, historyPageSize, (page-1)*historyPageSize,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := &HistoryPage{
		Data: []HistoryDay{},
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			TotalPages: (total + historyPageSize - 1) / historyPageSize,
		},
	}

	for rows.Next() {
		var d HistoryDay

		if err := rows.Scan(&d.Day, &d.FocusedSeconds, &d.TotalSeconds); err != nil {
			return nil, err
		}

		out.Data = append(out.Data, d)
	}

	return out, rows.Err()
}

// Languages returns a user's focused time per language between start and
// end, largest first.
func (db *DB) Languages(
	ctx context.Context,
	username, start, end string,
) ([]LanguageTotal, error) {
	id, err := db.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
SELECT language, SUM(focused_seconds) AS secs
FROM daily_language_totals
WHERE user_id = ? AND day BETWEEN ? AND ?
GROUP BY language
ORDER BY secs DESC, language ASC`,
		id, start, end,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := []LanguageTotal{}

	for rows.Next() {
		var l LanguageTotal

		if err := rows.Scan(&l.Language, &l.FocusedSeconds); err != nil {
			return nil, err
		}

		out = append(out, l)
	}

	return out, rows.Err()
}

// Leaderboard ranks users by focused time between start and end.
func (db *DB) Leaderboard(
	ctx context.Context,
	start, end string,
	limit int,
) ([]LeaderboardEntry, error) {
	rows, err := db.QueryContext(ctx, `
SELECT p.username, SUM(d.focused_seconds) AS focused, SUM(d.total_seconds)
FROM daily_totals d
JOIN profiles p ON p.id = d.user_id
WHERE d.day BETWEEN ? AND ?
GROUP BY p.id
ORDER BY focused DESC, p.username ASC
LIMIT ?`,
		start, end, limit,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	out := []LeaderboardEntry{}

	for rows.Next() {
		e := LeaderboardEntry{Rank: len(out) + 1}

		if err := rows.Scan(&e.Username, &e.FocusedSeconds, &e.TotalSeconds); err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, rows.Err()
}
