package daylog

import (
	"time"

	"github.com/google/uuid"

	"lifeQuestAPI/internal/clock"
)

// DailyLog is the per-user, per-local-calendar-day record. ClosedAt is null
// until the day-close reconciliation runs, then immutable.
type DailyLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Date           string     `json:"date" db:"date"`
	CoreTotal      int        `json:"core_total" db:"core_total"`
	CoreCompleted  int        `json:"core_completed" db:"core_completed"`
	BonusCompleted int        `json:"bonus_completed" db:"bonus_completed"`
	XPBase         int64      `json:"xp_base" db:"xp_base"`
	XPEarned       int64      `json:"xp_earned" db:"xp_earned"`
	PerfectDay     bool       `json:"perfect_day" db:"perfect_day"`
	BonusRerolled  bool       `json:"bonus_rerolled" db:"bonus_rerolled"`
	ClosedAt       *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// DayStatus is what getDayStatus returns: where the user's local day stands
// and whether the client should surface end-of-day reconciliation.
type DayStatus struct {
	Date            string      `json:"date"`
	Phase           clock.Phase `json:"phase"`
	Hour            int         `json:"hour"`
	Closed          bool        `json:"closed"`
	ShouldReconcile bool        `json:"should_reconcile"`
}

// DaySummary is the result of closing a day.
type DaySummary struct {
	Date            string `json:"date"`
	CoreTotal       int    `json:"core_total"`
	CoreCompleted   int    `json:"core_completed"`
	BonusCompleted  int    `json:"bonus_completed"`
	ExpiredQuests   int    `json:"expired_quests"`
	XPBase          int64  `json:"xp_base"`
	XPEarned        int64  `json:"xp_earned"`
	PerfectDay      bool   `json:"perfect_day"`
	CurrentStreak   int    `json:"current_streak"`
	LongestStreak   int    `json:"longest_streak"`
	PerfectStreak   int    `json:"perfect_streak"`
	Level           int    `json:"level"`
	LevelPercent    int    `json:"level_percent"`
	LeveledUp       bool   `json:"leveled_up"`
}
