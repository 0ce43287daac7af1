package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags a progression event. The core only ever emits a kind plus a
// numeric payload; rendering user-facing text belongs to the notification
// and narrative subsystems.
type Kind string

const (
	KindQuestCompleted  Kind = "quest_completed"
	KindLevelUp         Kind = "level_up"
	KindStreakMilestone Kind = "streak_milestone"
	KindPerfectDay      Kind = "perfect_day"
)

type Event struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Kind      Kind      `json:"kind" db:"kind"`
	Value     int64     `json:"value" db:"value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// streakMilestones are the run lengths worth announcing.
var streakMilestones = map[int]bool{
	3: true, 7: true, 14: true, 30: true, 50: true, 100: true, 365: true,
}

// IsStreakMilestone reports whether a streak length crosses a milestone.
func IsStreakMilestone(streak int) bool {
	return streakMilestones[streak]
}
