package progression

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func neutralFactors() Factors {
	return Factors{
		Streak:   decimal.NewFromInt(1),
		Season:   decimal.NewFromInt(1),
		HardMode: decimal.NewFromInt(1),
		Weekend:  decimal.NewFromInt(1),
		Debuff:   decimal.Zero,
	}
}

func TestComposeStreakAndSeason(t *testing.T) {
	// 100 * 1.1 * 1.2 = 132 exactly.
	f := neutralFactors()
	f.Streak = decimal.RequireFromString("1.1")
	f.Season = decimal.RequireFromString("1.2")

	award := Compose(100, f)
	if award.FinalAmount != 132 {
		t.Errorf("final = %d, want 132", award.FinalAmount)
	}
	if award.BaseAmount != 100 {
		t.Errorf("base = %d, want 100", award.BaseAmount)
	}
}

func TestComposeNeutralIsIdentity(t *testing.T) {
	award := Compose(75, neutralFactors())
	if award.FinalAmount != 75 {
		t.Errorf("final = %d, want 75", award.FinalAmount)
	}
}

func TestComposeDebuffReduces(t *testing.T) {
	f := neutralFactors()
	f.Debuff = decimal.RequireFromString("0.25")

	award := Compose(100, f)
	if award.FinalAmount != 75 {
		t.Errorf("final = %d, want 75", award.FinalAmount)
	}
}

func TestComposeRounds(t *testing.T) {
	f := neutralFactors()
	f.Streak = decimal.RequireFromString("1.05")

	// 30 * 1.05 = 31.5, rounds to 32 (half away from zero).
	award := Compose(30, f)
	if award.FinalAmount != 32 {
		t.Errorf("final = %d, want 32", award.FinalAmount)
	}
}

func TestComposeIsReproducible(t *testing.T) {
	f := neutralFactors()
	f.Streak = decimal.RequireFromString("1.1")
	f.Weekend = weekendFactor
	f.Debuff = decimal.RequireFromString("0.1")

	first := Compose(137, f)
	for i := 0; i < 100; i++ {
		if again := Compose(137, f); again.FinalAmount != first.FinalAmount {
			t.Fatalf("run %d: final %d != %d", i, again.FinalAmount, first.FinalAmount)
		}
	}
}

func TestStreakFactorSteps(t *testing.T) {
	cases := []struct {
		streak int
		want   string
	}{
		{0, "1"},
		{2, "1"},
		{3, "1.05"},
		{6, "1.05"},
		{7, "1.1"},
		{13, "1.1"},
		{14, "1.2"},
		{30, "1.3"},
		{99, "1.3"},
		{100, "1.5"},
		{500, "1.5"},
	}

	for _, tc := range cases {
		got := StreakFactor(tc.streak)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("StreakFactor(%d) = %s, want %s", tc.streak, got, tc.want)
		}
	}
}

func TestHardModeGating(t *testing.T) {
	oneD := decimal.NewFromInt(1)

	// Enabled but locked: level < 25 and season < 3.
	if got := HardModeFactor(true, 10, 1); !got.Equal(oneD) {
		t.Errorf("locked hard mode factor = %s, want 1", got)
	}
	// Unlocked by level.
	if got := HardModeFactor(true, 25, 1); !got.Equal(hardModeFactor) {
		t.Errorf("level-unlocked factor = %s, want 1.5", got)
	}
	// Unlocked by season.
	if got := HardModeFactor(true, 1, 3); !got.Equal(hardModeFactor) {
		t.Errorf("season-unlocked factor = %s, want 1.5", got)
	}
	// Disabled never applies, however high the level.
	if got := HardModeFactor(false, 90, 5); !got.Equal(oneD) {
		t.Errorf("disabled factor = %s, want 1", got)
	}
}

func TestDebuffPenaltyLiveExpiry(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	penalty := decimal.RequireFromString("0.2")

	future := now.Add(time.Hour)
	if got := DebuffPenalty(penalty, &future, now); !got.Equal(penalty) {
		t.Errorf("active debuff = %s, want 0.2", got)
	}

	past := now.Add(-time.Minute)
	if got := DebuffPenalty(penalty, &past, now); !got.IsZero() {
		t.Errorf("expired debuff = %s, want 0", got)
	}

	if got := DebuffPenalty(penalty, &now, now); !got.IsZero() {
		t.Errorf("debuff at exact expiry = %s, want 0", got)
	}

	if got := DebuffPenalty(penalty, nil, now); !got.IsZero() {
		t.Errorf("nil expiry = %s, want 0", got)
	}
}

func TestResolveFactorsWeekend(t *testing.T) {
	now := time.Now()
	f := ResolveFactors(7, 2, 30, true, true, decimal.Zero, nil, now)

	if !f.Streak.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("streak = %s", f.Streak)
	}
	if !f.Season.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("season = %s", f.Season)
	}
	if !f.HardMode.Equal(hardModeFactor) {
		t.Errorf("hard mode = %s", f.HardMode)
	}
	if !f.Weekend.Equal(weekendFactor) {
		t.Errorf("weekend = %s", f.Weekend)
	}
	if !f.Debuff.IsZero() {
		t.Errorf("debuff = %s", f.Debuff)
	}
}
