package quest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Cadence string

const (
	CadenceDaily  Cadence = "DAILY"
	CadenceWeekly Cadence = "WEEKLY"
	CadenceBonus  Cadence = "BONUS"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

// IsTerminal reports whether a status accepts no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// WeekCondition names the per-day condition a weekly quest counts. Weekly
// progress is days-satisfying-condition vs a target day count, derived from
// the week's daily logs, not from live metrics.
type WeekCondition string

const (
	WeekCoreComplete WeekCondition = "core_complete"
	WeekPerfectDay   WeekCondition = "perfect_day"
	WeekBonusDone    WeekCondition = "bonus_done"
)

// QuestTemplate is the immutable quest definition shared across users.
type QuestTemplate struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Cadence       Cadence         `json:"cadence" db:"cadence"`
	Category      string          `json:"category" db:"category"`
	Requirement   json.RawMessage `json:"requirement" db:"requirement"`
	BaseReward    int64           `json:"base_reward" db:"base_reward"`
	Stat          string          `json:"stat" db:"stat"`
	IsCore        bool            `json:"is_core" db:"is_core"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	WeekCondition *WeekCondition  `json:"week_condition,omitempty" db:"week_condition"`
	WeekTarget    *int            `json:"week_target,omitempty" db:"week_target"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// QuestInstance is the per-user, per-period materialization of a template.
// Exactly one exists per (user, template, period key).
type QuestInstance struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	TemplateID    uuid.UUID  `json:"template_id" db:"template_id"`
	PeriodKey     string     `json:"period_key" db:"period_key"`
	Status        Status     `json:"status" db:"status"`
	CurrentValue  float64    `json:"current_value" db:"current_value"`
	TargetValue   float64    `json:"target_value" db:"target_value"`
	CompletionPct float64    `json:"completion_pct" db:"completion_pct"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	AwardedAmount *int64     `json:"awarded_amount,omitempty" db:"awarded_amount"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// InstanceWithTemplate pairs an instance with its template for board views.
type InstanceWithTemplate struct {
	QuestInstance
	Name       string  `json:"name"`
	Cadence    Cadence `json:"cadence"`
	Category   string  `json:"category"`
	Stat       string  `json:"stat"`
	IsCore     bool    `json:"is_core"`
	BaseReward int64   `json:"base_reward"`
}
