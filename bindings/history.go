package bindings

import (
	"time"

	"github.com/openplay-labs/piggy-bank-desktop/internal/history"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
)

// RecentRounds returns the newest recorded rounds, newest first. An empty
// difficulty returns rounds across all tiers.
func (a *App) RecentRounds(difficulty string, limit int) ([]history.Round, error) {
	var d piggy.Difficulty
	if difficulty != "" {
		parsed, err := piggy.ParseDifficulty(difficulty)
		if err != nil {
			return nil, err
		}
		d = parsed
	}
	return a.history.Recent(a.ctx, d, limit)
}

// RoundStats aggregates the recorded rounds for one difficulty, or for all
// of them when difficulty is empty.
func (a *App) RoundStats(difficulty string) (history.Stats, error) {
	var d piggy.Difficulty
	if difficulty != "" {
		parsed, err := piggy.ParseDifficulty(difficulty)
		if err != nil {
			return history.Stats{}, err
		}
		d = parsed
	}
	return a.history.StatsFor(a.ctx, d)
}

// PruneHistory deletes rounds older than the given number of days and
// returns how many were removed.
func (a *App) PruneHistory(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	return a.history.Prune(a.ctx, cutoff)
}
