package progression

import (
	"time"

	"github.com/shopspring/decimal"
)

// Factors are the multipliers resolved for one award, in the order they are
// applied: streak, season, hard mode, weekend, then the debuff reduction.
// Every ledger entry stores the factors actually used so past awards stay
// auditable without replaying current user state.
type Factors struct {
	Streak   decimal.Decimal `json:"streak_factor"`
	Season   decimal.Decimal `json:"season_factor"`
	HardMode decimal.Decimal `json:"hard_mode_factor"`
	Weekend  decimal.Decimal `json:"weekend_factor"`
	Debuff   decimal.Decimal `json:"debuff_penalty"`
}

// Award is the auditable outcome of composing a base reward with factors.
type Award struct {
	BaseAmount  int64
	Factors     Factors
	FinalAmount int64
}

var (
	one = decimal.NewFromInt(1)

	hardModeFactor = decimal.RequireFromString("1.5")
	weekendFactor  = decimal.RequireFromString("1.25")
)

// Streak factor steps. Not continuous: a run has to cross a step boundary
// before the multiplier moves.
var streakSteps = []struct {
	minStreak int
	factor    string
}{
	{100, "1.5"},
	{30, "1.3"},
	{14, "1.2"},
	{7, "1.1"},
	{3, "1.05"},
}

func StreakFactor(currentStreak int) decimal.Decimal {
	for _, step := range streakSteps {
		if currentStreak >= step.minStreak {
			return decimal.RequireFromString(step.factor)
		}
	}
	return one
}

// Season factors are fixed per season number at event time.
var seasonFactors = map[int]string{
	2: "1.1",
	3: "1.2",
	4: "1.25",
}

func SeasonFactor(season int) decimal.Decimal {
	if season >= 5 {
		return decimal.RequireFromString("1.3")
	}
	if s, ok := seasonFactors[season]; ok {
		return decimal.RequireFromString(s)
	}
	return one
}

// HardModeUnlocked reports whether the hard-mode multiplier may apply at all.
func HardModeUnlocked(level, season int) bool {
	return level >= 25 || season >= 3
}

// HardModeFactor is 1.5 only when hard mode is both enabled and unlocked.
// Toggling the flag never touches past ledger entries; the factor is
// resolved fresh at each award.
func HardModeFactor(enabled bool, level, season int) decimal.Decimal {
	if enabled && HardModeUnlocked(level, season) {
		return hardModeFactor
	}
	return one
}

func WeekendFactor(isWeekend bool) decimal.Decimal {
	if isWeekend {
		return weekendFactor
	}
	return one
}

// DebuffPenalty returns the active reduction, or zero once the debuff has
// lapsed. Expiry is checked live; no cleanup job exists.
func DebuffPenalty(penalty decimal.Decimal, expiresAt *time.Time, now time.Time) decimal.Decimal {
	if expiresAt == nil || !now.Before(*expiresAt) {
		return decimal.Zero
	}
	if penalty.IsNegative() {
		return decimal.Zero
	}
	return penalty
}

// Compose turns a base amount into the final award:
//
//	final = round(base * streak * season * hardMode * weekend * (1 - debuff))
//
// The factor order is fixed so repeated computations over the same inputs
// are reproducible to the unit.
func Compose(baseAmount int64, f Factors) Award {
	final := decimal.NewFromInt(baseAmount).
		Mul(f.Streak).
		Mul(f.Season).
		Mul(f.HardMode).
		Mul(f.Weekend).
		Mul(one.Sub(f.Debuff)).
		Round(0)

	return Award{
		BaseAmount:  baseAmount,
		Factors:     f,
		FinalAmount: final.IntPart(),
	}
}

// ResolveFactors gathers the live factor set for a user at award time.
func ResolveFactors(currentStreak, season, level int, hardMode, isWeekend bool, debuffPenalty decimal.Decimal, debuffExpiresAt *time.Time, now time.Time) Factors {
	return Factors{
		Streak:   StreakFactor(currentStreak),
		Season:   SeasonFactor(season),
		HardMode: HardModeFactor(hardMode, level, season),
		Weekend:  WeekendFactor(isWeekend),
		Debuff:   DebuffPenalty(debuffPenalty, debuffExpiresAt, now),
	}
}
