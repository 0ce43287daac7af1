package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeQuestAPI/internal/clock"
	"lifeQuestAPI/internal/event"
	"lifeQuestAPI/internal/progression"
	"lifeQuestAPI/internal/types/daylog"
	"lifeQuestAPI/internal/types/ledger"
)

const defaultReconcileHour = 22

// XP granted on top of quest rewards when every core quest hit 100%.
const perfectDayBaseXP = 50

// DayService drives the per-user day cycle: phase reporting, the once-only
// day-close reconciliation, and streak bookkeeping. Day close is lazy; the
// first access after local midnight (or an external scheduler) triggers it.
type DayService struct {
	db            *pgxpool.Pool
	quests        *QuestService
	rewards       *RewardService
	events        *EventRecorder
	reconcileHour int
}

func NewDayService(db *pgxpool.Pool, quests *QuestService, rewards *RewardService, events *EventRecorder) *DayService {
	hour := defaultReconcileHour
	if v := os.Getenv("RECONCILE_HOUR"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 && parsed <= 23 {
			hour = parsed
		}
	}

	return &DayService{
		db:            db,
		quests:        quests,
		rewards:       rewards,
		events:        events,
		reconcileHour: hour,
	}
}

// GetDayStatus resolves "today" in the user's timezone and reports the day
// phase plus whether end-of-day reconciliation should be surfaced.
func (s *DayService) GetDayStatus(ctx context.Context, userID uuid.UUID) (*daylog.DayStatus, error) {
	tz, err := s.quests.userTimezone(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	local := clock.Now(tz)

	var closedAt *time.Time
	err = s.db.QueryRow(ctx, `
	SELECT closed_at FROM daily_logs
	WHERE user_id = $1 AND date = $2
	`, userID, local.Date).Scan(&closedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get daily log: %w", err)
	}

	closed := closedAt != nil
	status := &daylog.DayStatus{
		Date:            local.Date,
		Phase:           clock.PhaseForHour(local.Hour),
		Hour:            local.Hour,
		Closed:          closed,
		ShouldReconcile: !closed && local.Hour >= s.reconcileHour,
	}
	if closed {
		status.Phase = clock.PhaseClosed
	}
	return status, nil
}

// dayCounts are the instance tallies reconciled into the log at close.
type dayCounts struct {
	CoreTotal      int
	CoreCompleted  int
	BonusCompleted int
	AllCorePerfect bool
}

// streakState mirrors the three streak counters on the user aggregate.
type streakState struct {
	Current int
	Longest int
	Perfect int
}

// nextStreaks applies one day-close to the streak counters. A day counts
// toward currentStreak only when every core quest completed and there was at
// least one; the chain continues only off a qualifying previous day.
// perfectStreak tracks the 100%-completion run as its own counter.
func nextStreaks(prev streakState, dayComplete, prevDayComplete, dayPerfect, prevDayPerfect bool) streakState {
	next := prev

	if !dayComplete {
		next.Current = 0
	} else if prevDayComplete {
		next.Current = prev.Current + 1
	} else {
		next.Current = 1
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}

	if !dayPerfect {
		next.Perfect = 0
	} else if prevDayPerfect {
		next.Perfect = prev.Perfect + 1
	} else {
		next.Perfect = 1
	}

	return next
}

// CloseDay runs the one-way end-of-day reconciliation for the user's current
// local date: it finalizes the day's log, expires unmet instances, updates
// the streak counters, and returns the day summary. Closing an already-
// closed day is rejected, never silently repeated.
func (s *DayService) CloseDay(ctx context.Context, userID uuid.UUID) (*daylog.DaySummary, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tz, err := s.quests.userTimezone(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	local := clock.Now(tz)
	weekKey, err := clock.WeekKey(local.Date)
	if err != nil {
		return nil, err
	}

	// Lazily create the log; the day's core target is the count of
	// currently-active core templates.
	var coreTarget int
	err = tx.QueryRow(ctx, `
	SELECT COUNT(*) FROM quest_templates
	WHERE is_active = true AND is_core = true AND cadence = 'DAILY'
	`).Scan(&coreTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to count core templates: %w", err)
	}

	if _, err := tx.Exec(ctx, `
	INSERT INTO daily_logs (id, user_id, date, core_total, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (user_id, date) DO NOTHING
	`, uuid.New(), userID, local.Date, coreTarget); err != nil {
		return nil, fmt.Errorf("failed to create daily log: %w", err)
	}

	logRow := &daylog.DailyLog{}
	err = tx.QueryRow(ctx, `
	SELECT id, core_total, closed_at, xp_base, xp_earned, bonus_rerolled
	FROM daily_logs
	WHERE user_id = $1 AND date = $2
	FOR UPDATE
	`, userID, local.Date).Scan(&logRow.ID, &logRow.CoreTotal, &logRow.ClosedAt, &logRow.XPBase, &logRow.XPEarned, &logRow.BonusRerolled)
	if err != nil {
		return nil, fmt.Errorf("failed to lock daily log: %w", err)
	}
	if logRow.ClosedAt != nil {
		return nil, ErrDayAlreadyClosed
	}
	if logRow.CoreTotal == 0 {
		logRow.CoreTotal = coreTarget
	}

	counts, err := s.countDay(ctx, tx, userID, local.Date)
	if err != nil {
		return nil, err
	}
	counts.CoreTotal = logRow.CoreTotal

	expired, err := s.quests.expireInstances(ctx, tx, userID, local.Date)
	if err != nil {
		return nil, err
	}

	dayComplete := counts.CoreTotal > 0 && counts.CoreCompleted >= counts.CoreTotal
	dayPerfect := dayComplete && counts.AllCorePerfect

	var perfectReward *ledger.LedgerEntry
	if dayPerfect {
		perfectReward, err = s.rewards.Award(ctx, tx, userID, local.Date, ledger.SourcePerfectDay, nil, perfectDayBaseXP)
		if err != nil {
			return nil, err
		}
		if err := s.events.Record(ctx, tx, userID, event.KindPerfectDay, perfectReward.FinalAmount); err != nil {
			return nil, err
		}
	}

	// Seal the log. closed_at is set exactly once and never changes.
	tag, err := tx.Exec(ctx, `
	UPDATE daily_logs
	SET core_total = $3, core_completed = $4, bonus_completed = $5, perfect_day = $6, closed_at = NOW()
	WHERE user_id = $1 AND date = $2 AND closed_at IS NULL
	`, userID, local.Date, counts.CoreTotal, counts.CoreCompleted, counts.BonusCompleted, dayPerfect)
	if err != nil {
		return nil, fmt.Errorf("failed to close daily log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDayAlreadyClosed
	}

	// With the log sealed, the closing day itself counts toward weekly
	// quests. Their awards still land on this day's log; only closed_at is
	// final.
	if err := s.quests.refreshWeeklyProgress(ctx, tx, userID, weekKey, local.Date); err != nil {
		return nil, err
	}

	// Closing the week's last day also closes out its unfinished weeklies.
	// This runs after the weekly refresh so a quest that completes on
	// Sunday's close is not expired out from under its reward.
	if local.Weekday == time.Sunday {
		weekExpired, err := s.quests.expireInstances(ctx, tx, userID, weekKey)
		if err != nil {
			return nil, err
		}
		expired += weekExpired
	}

	prev, err := s.previousDayOutcome(ctx, tx, userID, local.Date)
	if err != nil {
		return nil, err
	}

	var current streakState
	err = tx.QueryRow(ctx, `
	SELECT current_streak, longest_streak, perfect_streak
	FROM users WHERE id = $1
	FOR UPDATE
	`, userID).Scan(&current.Current, &current.Longest, &current.Perfect)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user streaks: %w", err)
	}

	next := nextStreaks(current, dayComplete, prev.complete, dayPerfect, prev.perfect)

	if _, err := tx.Exec(ctx, `
	UPDATE users
	SET current_streak = $2, longest_streak = $3, perfect_streak = $4, updated_at = NOW()
	WHERE id = $1
	`, userID, next.Current, next.Longest, next.Perfect); err != nil {
		return nil, fmt.Errorf("failed to update streaks: %w", err)
	}

	if event.IsStreakMilestone(next.Current) {
		if err := s.events.Record(ctx, tx, userID, event.KindStreakMilestone, int64(next.Current)); err != nil {
			return nil, err
		}
	}

	// Every award for the day has landed by now; re-read the totals so the
	// summary includes the perfect-day bonus and any weekly completions.
	err = tx.QueryRow(ctx, `
	SELECT xp_base, xp_earned FROM daily_logs
	WHERE user_id = $1 AND date = $2
	`, userID, local.Date).Scan(&logRow.XPBase, &logRow.XPEarned)
	if err != nil {
		return nil, fmt.Errorf("failed to read daily log totals: %w", err)
	}

	var totalXP int64
	if err := tx.QueryRow(ctx, `SELECT total_xp FROM users WHERE id = $1`, userID).Scan(&totalXP); err != nil {
		return nil, fmt.Errorf("failed to read user total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit day close: %w", err)
	}

	daysClosedTotal.Inc()
	log.Printf("Closed day %s for user %s: %d/%d core, streak %d", local.Date, userID, counts.CoreCompleted, counts.CoreTotal, next.Current)

	progress := progression.ProgressFor(totalXP)
	return &daylog.DaySummary{
		Date:           local.Date,
		CoreTotal:      counts.CoreTotal,
		CoreCompleted:  counts.CoreCompleted,
		BonusCompleted: counts.BonusCompleted,
		ExpiredQuests:  expired,
		XPBase:         logRow.XPBase,
		XPEarned:       logRow.XPEarned,
		PerfectDay:     dayPerfect,
		CurrentStreak:  next.Current,
		LongestStreak:  next.Longest,
		PerfectStreak:  next.Perfect,
		Level:          progress.Level,
		LevelPercent:   progress.Percent,
		LeveledUp:      perfectReward != nil && progression.LevelFor(perfectReward.TotalAfter) > progression.LevelFor(perfectReward.TotalBefore),
	}, nil
}

func (s *DayService) countDay(ctx context.Context, tx dbtx, userID uuid.UUID, date string) (*dayCounts, error) {
	query := `
	SELECT
		COUNT(*) FILTER (WHERE qt.is_core AND qt.cadence = 'DAILY') AS core_total,
		COUNT(*) FILTER (WHERE qt.is_core AND qt.cadence = 'DAILY' AND qi.status = 'COMPLETED') AS core_completed,
		COUNT(*) FILTER (WHERE qt.cadence = 'BONUS' AND qi.status = 'COMPLETED') AS bonus_completed,
		COALESCE(BOOL_AND(qi.completion_pct >= 100) FILTER (WHERE qt.is_core AND qt.cadence = 'DAILY'), false) AS all_core_perfect
	FROM quest_instances qi
	JOIN quest_templates qt ON qt.id = qi.template_id
	WHERE qi.user_id = $1 AND qi.period_key = $2
	`

	counts := &dayCounts{}
	err := tx.QueryRow(ctx, query, userID, date).Scan(
		&counts.CoreTotal,
		&counts.CoreCompleted,
		&counts.BonusCompleted,
		&counts.AllCorePerfect,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count day instances: %w", err)
	}
	return counts, nil
}

type dayOutcome struct {
	complete bool
	perfect  bool
}

// previousDayOutcome looks at the chronologically preceding day's closed
// log. A missing or unclosed log, or a zero-core day, does not qualify.
func (s *DayService) previousDayOutcome(ctx context.Context, tx dbtx, userID uuid.UUID, date string) (dayOutcome, error) {
	prevDate, err := clock.PreviousDate(date)
	if err != nil {
		return dayOutcome{}, err
	}

	var coreTotal, coreCompleted int
	var perfect bool
	var closedAt *time.Time
	err = tx.QueryRow(ctx, `
	SELECT core_total, core_completed, perfect_day, closed_at
	FROM daily_logs
	WHERE user_id = $1 AND date = $2
	`, userID, prevDate).Scan(&coreTotal, &coreCompleted, &perfect, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dayOutcome{}, nil
		}
		return dayOutcome{}, fmt.Errorf("failed to get previous daily log: %w", err)
	}
	if closedAt == nil {
		return dayOutcome{}, nil
	}

	return dayOutcome{
		complete: coreTotal > 0 && coreCompleted >= coreTotal,
		perfect:  perfect,
	}, nil
}
