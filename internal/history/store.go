// Package history persists a local record of every reconciled round
// interaction so the UI can show recent results across restarts. The
// backend remains the source of truth for balances and contexts; this
// store is append-only bookkeeping on the player's machine.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// Round is one recorded interaction.
type Round struct {
	ID         uuid.UUID        `json:"id"`
	RecordedAt time.Time        `json:"recorded_at"`
	Difficulty piggy.Difficulty `json:"difficulty"`
	Action     string           `json:"action"`
	Stake      decimal.Decimal  `json:"stake"`
	Position   int              `json:"position"`
	Win        decimal.Decimal  `json:"win"`
	OldBalance decimal.Decimal  `json:"old_balance"`
	NewBalance decimal.Decimal  `json:"new_balance"`
	Finished   bool             `json:"finished"`
}

// Stats aggregates the recorded rounds for one difficulty.
type Stats struct {
	Difficulty piggy.Difficulty `json:"difficulty"`
	Rounds     int64            `json:"rounds"`
	TotalWin   decimal.Decimal  `json:"total_win"`
	BestWin    decimal.Decimal  `json:"best_win"`
}

type Store struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&cache=shared", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		// Amounts are stored as exact decimal strings, never floats.
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			recorded_at TIMESTAMP NOT NULL,
			difficulty TEXT NOT NULL,
			action TEXT NOT NULL,
			stake TEXT NOT NULL,
			position INTEGER NOT NULL,
			win TEXT NOT NULL,
			old_balance TEXT NOT NULL,
			new_balance TEXT NOT NULL,
			finished INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_recorded ON rounds(recorded_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_difficulty ON rounds(difficulty, recorded_at DESC);`,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Record stores one reconciled interaction and returns its id.
func (s *Store) Record(ctx context.Context, difficulty piggy.Difficulty, action string, outcome piggy.Outcome) (uuid.UUID, error) {
	if action == "" {
		return uuid.Nil, errors.New("history: missing action")
	}

	id := uuid.New()
	position := int(outcome.Context.CurrentPosition)
	finished := 0
	if !outcome.Context.Ongoing() {
		finished = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds(
			id, recorded_at, difficulty, action, stake,
			position, win, old_balance, new_balance, finished
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC(), string(difficulty), action, outcome.Context.Stake.String(),
		position, outcome.Context.Win.String(), outcome.OldBalance.String(), outcome.NewBalance.String(), finished)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Recent returns the latest rounds, newest first, optionally restricted to
// one difficulty.
func (s *Store) Recent(ctx context.Context, difficulty piggy.Difficulty, limit int) ([]Round, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	where := "1=1"
	args := []any{}
	if difficulty != "" {
		where = "difficulty = ?"
		args = append(args, string(difficulty))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, difficulty, action, stake, position, win, old_balance, new_balance, finished
		FROM rounds
		WHERE `+where+`
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatsFor aggregates the recorded rounds, optionally restricted to one
// difficulty.
func (s *Store) StatsFor(ctx context.Context, difficulty piggy.Difficulty) (Stats, error) {
	stats := Stats{Difficulty: difficulty, TotalWin: decimal.Zero, BestWin: decimal.Zero}

	where := "1=1"
	args := []any{}
	if difficulty != "" {
		where = "difficulty = ?"
		args = append(args, string(difficulty))
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT win FROM rounds WHERE `+where, args...)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	// Wins are decimal strings, so the sum runs in Go rather than SQL.
	for rows.Next() {
		var winStr string
		if err := rows.Scan(&winStr); err != nil {
			return stats, err
		}
		win, err := decimal.NewFromString(winStr)
		if err != nil {
			return stats, fmt.Errorf("history: corrupt win value %q: %w", winStr, err)
		}
		stats.Rounds++
		stats.TotalWin = stats.TotalWin.Add(win)
		if win.GreaterThan(stats.BestWin) {
			stats.BestWin = win
		}
	}
	return stats, rows.Err()
}

// Prune deletes rounds older than the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rounds WHERE recorded_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRound(rows *sql.Rows) (Round, error) {
	var (
		r                             Round
		idStr, diffStr                string
		stakeStr, winStr, oldB, newB  string
		finished                      int
	)
	if err := rows.Scan(&idStr, &r.RecordedAt, &diffStr, &r.Action, &stakeStr,
		&r.Position, &winStr, &oldB, &newB, &finished); err != nil {
		return r, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return r, fmt.Errorf("history: corrupt round id %q: %w", idStr, err)
	}
	r.ID = id
	r.Difficulty = piggy.Difficulty(diffStr)
	r.Finished = finished != 0
	if r.Stake, err = decimal.NewFromString(stakeStr); err != nil {
		return r, fmt.Errorf("history: corrupt stake %q: %w", stakeStr, err)
	}
	if r.Win, err = decimal.NewFromString(winStr); err != nil {
		return r, fmt.Errorf("history: corrupt win %q: %w", winStr, err)
	}
	if r.OldBalance, err = decimal.NewFromString(oldB); err != nil {
		return r, fmt.Errorf("history: corrupt old balance %q: %w", oldB, err)
	}
	if r.NewBalance, err = decimal.NewFromString(newB); err != nil {
		return r, fmt.Errorf("history: corrupt new balance %q: %w", newB, err)
	}
	return r, nil
}
