package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source of an experience award.
const (
	SourceQuest      = "quest"
	SourcePerfectDay = "perfect_day"
)

// LedgerEntry is one append-only experience award. The factors actually
// applied are stored alongside the amounts, so any past award can be audited
// without recomputing against the user's current state. Rows are never
// mutated.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Source         string          `json:"source" db:"source"`
	SourceID       *uuid.UUID      `json:"source_id,omitempty" db:"source_id"`
	BaseAmount     int64           `json:"base_amount" db:"base_amount"`
	StreakFactor   decimal.Decimal `json:"streak_factor" db:"streak_factor"`
	SeasonFactor   decimal.Decimal `json:"season_factor" db:"season_factor"`
	HardModeFactor decimal.Decimal `json:"hard_mode_factor" db:"hard_mode_factor"`
	WeekendFactor  decimal.Decimal `json:"weekend_factor" db:"weekend_factor"`
	DebuffPenalty  decimal.Decimal `json:"debuff_penalty" db:"debuff_penalty"`
	FinalAmount    int64           `json:"final_amount" db:"final_amount"`
	TotalBefore    int64           `json:"total_before" db:"total_before"`
	TotalAfter     int64           `json:"total_after" db:"total_after"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
