package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the per-user progression aggregate: the single row mutated
// transactionally whenever a ledger entry lands or a day closes.
type User struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	Level           int             `json:"level"`
	TotalXP         int64           `json:"total_xp"`
	CurrentStreak   int             `json:"current_streak"`
	LongestStreak   int             `json:"longest_streak"`
	PerfectStreak   int             `json:"perfect_streak"`
	HardMode        bool            `json:"hard_mode"`
	Season          int             `json:"season"`
	Timezone        string          `json:"timezone"`
	DebuffPenalty   decimal.Decimal `json:"debuff_penalty"`
	DebuffExpiresAt *time.Time      `json:"debuff_expires_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
