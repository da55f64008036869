// Package streak counts consecutive calendar days of use.
package streak

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/lexiquiz/internal/domain"
)

// Store persists the single streak state. LoadStreakState returns nil when
// no state has been saved yet.
type Store interface {
	LoadStreakState() (*domain.StreakState, error)
	PersistStreakState(state domain.StreakState) error
}

// Midnight returns the start of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Touch records a visit at now. A same-day visit leaves the streak
// unchanged and a visit the day after the last one extends it. Anything
// else, including a last visit in the future, starts over at 1.
func Touch(now time.Time, prior *domain.StreakState) domain.StreakState {
	today := Midnight(now)
	fresh := domain.StreakState{CurrentStreak: 1, LastActive: today}
	if prior == nil {
		return fresh
	}

	last := Midnight(prior.LastActive.In(now.Location()))
	switch {
	case last.Equal(today):
		return domain.StreakState{CurrentStreak: prior.CurrentStreak, LastActive: today}
	case last.Equal(today.AddDate(0, 0, -1)):
		return domain.StreakState{CurrentStreak: prior.CurrentStreak + 1, LastActive: today}
	default:
		return fresh
	}
}

// Bootstrap loads the stored state, touches it at now and saves the result.
// It runs once per application start.
func Bootstrap(store Store, now time.Time) (domain.StreakState, error) {
	prior, err := store.LoadStreakState()
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("failed to load streak: %w", err)
	}

	state := Touch(now, prior)
	if err := store.PersistStreakState(state); err != nil {
		return domain.StreakState{}, fmt.Errorf("failed to save streak: %w", err)
	}

	slog.Info("streak updated", "streak", state.CurrentStreak, "last_active", state.LastActive.Format(time.DateOnly))
	return state, nil
}
