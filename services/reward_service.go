package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lifeQuestAPI/internal/clock"
	"lifeQuestAPI/internal/event"
	"lifeQuestAPI/internal/progression"
	"lifeQuestAPI/internal/types/ledger"
)

// RewardService turns base rewards into ledger entries and keeps the user
// aggregate in step. Every award runs inside the caller's transaction: the
// ledger insert and the aggregate update land atomically or not at all.
type RewardService struct {
	db     *pgxpool.Pool
	events *EventRecorder
}

func NewRewardService(db *pgxpool.Pool, events *EventRecorder) *RewardService {
	return &RewardService{db: db, events: events}
}

// rewardSnapshot is the slice of the user aggregate the composer needs,
// captured under row lock at event time.
type rewardSnapshot struct {
	TotalXP         int64
	Level           int
	CurrentStreak   int
	Season          int
	HardMode        bool
	Timezone        string
	DebuffPenalty   decimal.Decimal
	DebuffExpiresAt *time.Time
}

func (s *RewardService) lockUser(ctx context.Context, tx dbtx, userID uuid.UUID) (*rewardSnapshot, error) {
	query := `
	SELECT total_xp, level, current_streak, season, hard_mode, timezone, debuff_penalty, debuff_expires_at
	FROM users
	WHERE id = $1
	FOR UPDATE
	`

	snap := &rewardSnapshot{}
	err := tx.QueryRow(ctx, query, userID).Scan(
		&snap.TotalXP,
		&snap.Level,
		&snap.CurrentStreak,
		&snap.Season,
		&snap.HardMode,
		&snap.Timezone,
		&snap.DebuffPenalty,
		&snap.DebuffExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user row: %w", err)
	}
	return snap, nil
}

// Award composes the multiplier chain for one base reward, appends the
// ledger entry, rolls the result into the user aggregate and the day's log,
// and records a level-up event if a threshold was crossed. The computation
// is a pure function of the snapshot taken here, so a caller retry after a
// failed transaction cannot double-award.
func (s *RewardService) Award(ctx context.Context, tx dbtx, userID uuid.UUID, date string, source string, sourceID *uuid.UUID, baseAmount int64) (*ledger.LedgerEntry, error) {
	snap, err := s.lockUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	local := clock.At(now, snap.Timezone)

	factors := progression.ResolveFactors(
		snap.CurrentStreak,
		snap.Season,
		snap.Level,
		snap.HardMode,
		local.IsWeekend,
		snap.DebuffPenalty,
		snap.DebuffExpiresAt,
		now,
	)
	award := progression.Compose(baseAmount, factors)

	entry := &ledger.LedgerEntry{
		ID:             uuid.New(),
		UserID:         userID,
		Source:         source,
		SourceID:       sourceID,
		BaseAmount:     award.BaseAmount,
		StreakFactor:   factors.Streak,
		SeasonFactor:   factors.Season,
		HardModeFactor: factors.HardMode,
		WeekendFactor:  factors.Weekend,
		DebuffPenalty:  factors.Debuff,
		FinalAmount:    award.FinalAmount,
		TotalBefore:    snap.TotalXP,
		TotalAfter:     snap.TotalXP + award.FinalAmount,
	}

	insertQuery := `
	INSERT INTO xp_ledger (id, user_id, source, source_id, base_amount, streak_factor, season_factor, hard_mode_factor, weekend_factor, debuff_penalty, final_amount, total_before, total_after, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	RETURNING created_at
	`

	err = tx.QueryRow(ctx, insertQuery,
		entry.ID,
		entry.UserID,
		entry.Source,
		entry.SourceID,
		entry.BaseAmount,
		entry.StreakFactor,
		entry.SeasonFactor,
		entry.HardModeFactor,
		entry.WeekendFactor,
		entry.DebuffPenalty,
		entry.FinalAmount,
		entry.TotalBefore,
		entry.TotalAfter,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	newLevel := progression.LevelFor(entry.TotalAfter)

	updateQuery := `
	UPDATE users
	SET total_xp = $2, level = $3, updated_at = NOW()
	WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery, userID, entry.TotalAfter, newLevel); err != nil {
		return nil, fmt.Errorf("failed to update user aggregate: %w", err)
	}

	// Roll the award into the day's log for the caller-resolved local date.
	dayQuery := `
	INSERT INTO daily_logs (id, user_id, date, xp_base, xp_earned, created_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id, date)
	DO UPDATE SET
		xp_base = daily_logs.xp_base + EXCLUDED.xp_base,
		xp_earned = daily_logs.xp_earned + EXCLUDED.xp_earned
	`
	if _, err := tx.Exec(ctx, dayQuery, uuid.New(), userID, date, entry.BaseAmount, entry.FinalAmount); err != nil {
		return nil, fmt.Errorf("failed to update daily log xp: %w", err)
	}

	if newLevel > snap.Level {
		if err := s.events.Record(ctx, tx, userID, event.KindLevelUp, int64(newLevel)); err != nil {
			return nil, err
		}
	}

	xpAwardedTotal.Add(float64(entry.FinalAmount))

	return entry, nil
}

// GetLedger returns the most recent ledger entries for a user.
func (s *RewardService) GetLedger(ctx context.Context, userID uuid.UUID, limit int) ([]*ledger.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `
	SELECT id, user_id, source, source_id, base_amount, streak_factor, season_factor, hard_mode_factor, weekend_factor, debuff_penalty, final_amount, total_before, total_after, created_at
	FROM xp_ledger
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	defer rows.Close()

	entries := []*ledger.LedgerEntry{}
	for rows.Next() {
		e := &ledger.LedgerEntry{}
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Source,
			&e.SourceID,
			&e.BaseAmount,
			&e.StreakFactor,
			&e.SeasonFactor,
			&e.HardModeFactor,
			&e.WeekendFactor,
			&e.DebuffPenalty,
			&e.FinalAmount,
			&e.TotalBefore,
			&e.TotalAfter,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
