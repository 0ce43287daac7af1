package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lifeQuestAPI/internal/clock"
	"lifeQuestAPI/internal/event"
	"lifeQuestAPI/internal/requirement"
	"lifeQuestAPI/internal/types/ledger"
	"lifeQuestAPI/internal/types/quest"
)

// QuestService owns the quest instance lifecycle: materializing instances
// from templates per period, moving them through the ACTIVE -> COMPLETED /
// EXPIRED / FAILED state machine, and handing completed quests to the
// reward service.
type QuestService struct {
	db      *pgxpool.Pool
	rewards *RewardService
	events  *EventRecorder
}

func NewQuestService(db *pgxpool.Pool, rewards *RewardService, events *EventRecorder) *QuestService {
	return &QuestService{db: db, rewards: rewards, events: events}
}

func (s *QuestService) userTimezone(ctx context.Context, tx dbtx, userID uuid.UUID) (string, error) {
	var tz string
	err := tx.QueryRow(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&tz)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user timezone: %w", err)
	}
	return tz, nil
}

// targetFromRequirement derives the displayable target for an instance from
// its template's requirement tree. Malformed requirements yield 0; the
// evaluator's fail-safe covers them at submission time too.
func targetFromRequirement(raw []byte) float64 {
	req, err := requirement.Parse(raw)
	if err != nil {
		return 0
	}
	return requirement.Evaluate(req, nil).Target
}

// GetQuestBoard materializes today's daily and bonus instances plus the
// current week's weekly instances for the user, refreshes weekly progress
// from the week's daily logs, and returns the lot.
func (s *QuestService) GetQuestBoard(ctx context.Context, userID uuid.UUID) (*quest.QuestBoardResponse, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tz, err := s.userTimezone(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	local := clock.Now(tz)
	weekKey, err := clock.WeekKey(local.Date)
	if err != nil {
		return nil, err
	}

	if err := s.ensureInstances(ctx, tx, userID, quest.CadenceDaily, local.Date); err != nil {
		return nil, err
	}
	if err := s.ensureInstances(ctx, tx, userID, quest.CadenceWeekly, weekKey); err != nil {
		return nil, err
	}
	if err := s.ensureBonusInstance(ctx, tx, userID, local.Date); err != nil {
		return nil, err
	}
	if err := s.refreshWeeklyProgress(ctx, tx, userID, weekKey, local.Date); err != nil {
		return nil, err
	}

	daily, err := s.listInstances(ctx, tx, userID, local.Date, quest.CadenceDaily)
	if err != nil {
		return nil, err
	}
	weekly, err := s.listInstances(ctx, tx, userID, weekKey, quest.CadenceWeekly)
	if err != nil {
		return nil, err
	}
	bonusList, err := s.listInstances(ctx, tx, userID, local.Date, quest.CadenceBonus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quest board: %w", err)
	}

	board := &quest.QuestBoardResponse{
		Date:   local.Date,
		Week:   weekKey,
		Daily:  daily,
		Weekly: weekly,
	}
	// The bonus slot holds at most the one rotating quest still visible
	// today; a rerolled-away instance is EXPIRED and filtered here.
	for _, b := range bonusList {
		if !b.Status.IsTerminal() || b.Status == quest.StatusCompleted {
			board.Bonus = b
			break
		}
	}
	return board, nil
}

// ensureInstances guarantees one instance per applicable active template for
// the period. Concurrent duplicate attempts race on the (user, template,
// period) unique constraint; ON CONFLICT DO NOTHING absorbs the loser and
// the existing row wins.
func (s *QuestService) ensureInstances(ctx context.Context, tx dbtx, userID uuid.UUID, cadence quest.Cadence, periodKey string) error {
	query := `
	SELECT id, requirement, week_condition, week_target
	FROM quest_templates
	WHERE is_active = true AND cadence = $1
	`

	rows, err := tx.Query(ctx, query, cadence)
	if err != nil {
		return fmt.Errorf("failed to list %s templates: %w", cadence, err)
	}

	type tpl struct {
		id         uuid.UUID
		req        []byte
		weekCond   *string
		weekTarget *int
	}
	templates := []tpl{}
	for rows.Next() {
		var t tpl
		if err := rows.Scan(&t.id, &t.req, &t.weekCond, &t.weekTarget); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate templates: %w", err)
	}

	for _, t := range templates {
		if cadence == quest.CadenceWeekly && (t.weekCond == nil || t.weekTarget == nil || *t.weekTarget <= 0) {
			// A weekly without a condition and target has no way to
			// progress; materializing it would only ever expire.
			continue
		}
		target := targetFromRequirement(t.req)
		if cadence == quest.CadenceWeekly && t.weekTarget != nil {
			target = float64(*t.weekTarget)
		}
		if err := s.insertInstance(ctx, tx, userID, t.id, periodKey, target); err != nil {
			return err
		}
	}
	return nil
}

func (s *QuestService) insertInstance(ctx context.Context, tx dbtx, userID, templateID uuid.UUID, periodKey string, target float64) error {
	query := `
	INSERT INTO quest_instances (id, user_id, template_id, period_key, status, current_value, target_value, completion_pct, created_at, updated_at)
	VALUES ($1, $2, $3, $4, 'ACTIVE', 0, $5, 0, NOW(), NOW())
	ON CONFLICT (user_id, template_id, period_key) DO NOTHING
	`

	_, err := tx.Exec(ctx, query, uuid.New(), userID, templateID, periodKey, target)
	if err != nil {
		return fmt.Errorf("failed to create quest instance: %w", err)
	}
	return nil
}

func (s *QuestService) listInstances(ctx context.Context, tx dbtx, userID uuid.UUID, periodKey string, cadence quest.Cadence) ([]*quest.InstanceWithTemplate, error) {
	query := `
	SELECT qi.id, qi.user_id, qi.template_id, qi.period_key, qi.status, qi.current_value, qi.target_value, qi.completion_pct, qi.completed_at, qi.awarded_amount, qi.created_at, qi.updated_at,
	       qt.name, qt.cadence, qt.category, qt.stat, qt.is_core, qt.base_reward
	FROM quest_instances qi
	JOIN quest_templates qt ON qt.id = qi.template_id
	WHERE qi.user_id = $1 AND qi.period_key = $2 AND qt.cadence = $3
	ORDER BY qt.is_core DESC, qt.name
	`

	rows, err := tx.Query(ctx, query, userID, periodKey, cadence)
	if err != nil {
		return nil, fmt.Errorf("failed to list quest instances: %w", err)
	}
	defer rows.Close()

	instances := []*quest.InstanceWithTemplate{}
	for rows.Next() {
		i := &quest.InstanceWithTemplate{}
		err := rows.Scan(
			&i.ID, &i.UserID, &i.TemplateID, &i.PeriodKey, &i.Status,
			&i.CurrentValue, &i.TargetValue, &i.CompletionPct,
			&i.CompletedAt, &i.AwardedAmount, &i.CreatedAt, &i.UpdatedAt,
			&i.Name, &i.Cadence, &i.Category, &i.Stat, &i.IsCore, &i.BaseReward,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest instance: %w", err)
		}
		instances = append(instances, i)
	}
	return instances, rows.Err()
}

type lockedInstance struct {
	quest.QuestInstance
	Requirement []byte
	Cadence     quest.Cadence
	BaseReward  int64
	WeekCond    *quest.WeekCondition
	WeekTarget  *int
}

func (s *QuestService) lockInstance(ctx context.Context, tx dbtx, instanceID uuid.UUID) (*lockedInstance, error) {
	query := `
	SELECT qi.id, qi.user_id, qi.template_id, qi.period_key, qi.status, qi.current_value, qi.target_value, qi.completion_pct, qi.completed_at, qi.awarded_amount, qi.created_at, qi.updated_at,
	       qt.requirement, qt.cadence, qt.base_reward, qt.week_condition, qt.week_target
	FROM quest_instances qi
	JOIN quest_templates qt ON qt.id = qi.template_id
	WHERE qi.id = $1
	FOR UPDATE OF qi
	`

	inst := &lockedInstance{}
	err := tx.QueryRow(ctx, query, instanceID).Scan(
		&inst.ID, &inst.UserID, &inst.TemplateID, &inst.PeriodKey, &inst.Status,
		&inst.CurrentValue, &inst.TargetValue, &inst.CompletionPct,
		&inst.CompletedAt, &inst.AwardedAmount, &inst.CreatedAt, &inst.UpdatedAt,
		&inst.Requirement, &inst.Cadence, &inst.BaseReward, &inst.WeekCond, &inst.WeekTarget,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to lock quest instance: %w", err)
	}
	return inst, nil
}

// SubmitProgress re-evaluates an instance against the latest metrics and
// persists the result. An ACTIVE instance whose requirement is now met
// transitions to COMPLETED and triggers exactly one reward; terminal
// instances reject further submissions rather than silently re-awarding.
func (s *QuestService) SubmitProgress(ctx context.Context, userID, instanceID uuid.UUID, metrics map[string]float64) (*quest.SubmitProgressResponse, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	inst, err := s.lockInstance(ctx, tx, instanceID)
	if err != nil {
		return nil, err
	}
	// Someone else's instance is indistinguishable from an unknown one.
	if inst.UserID != userID {
		return nil, ErrInstanceNotFound
	}
	if inst.Status.IsTerminal() {
		return nil, ErrInstanceTerminal
	}

	if inst.Cadence == quest.CadenceWeekly {
		// Weekly quests never evaluate live metrics; their progress is the
		// day-count algorithm over the week's logs.
		tz, err := s.userTimezone(ctx, tx, inst.UserID)
		if err != nil {
			return nil, err
		}
		local := clock.Now(tz)
		if err := s.refreshWeeklyProgress(ctx, tx, inst.UserID, inst.PeriodKey, local.Date); err != nil {
			return nil, err
		}
		refreshed, err := s.lockInstance(ctx, tx, instanceID)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit weekly progress: %w", err)
		}
		return &quest.SubmitProgressResponse{Instance: &refreshed.QuestInstance}, nil
	}

	var res requirement.Result
	req, parseErr := requirement.Parse(inst.Requirement)
	if parseErr != nil {
		// Malformed template requirement: fail safe, never an error.
		log.Printf("Malformed requirement on template %s: %v", inst.TemplateID, parseErr)
		res = requirement.Result{}
	} else {
		res = requirement.Evaluate(req, metrics)
	}

	current := res.Progress
	if n, ok := req.(requirement.Numeric); ok {
		current = metrics[n.Metric]
	}

	updateQuery := `
	UPDATE quest_instances
	SET current_value = $2, completion_pct = $3, updated_at = NOW()
	WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateQuery, inst.ID, current, res.Progress); err != nil {
		return nil, fmt.Errorf("failed to update quest progress: %w", err)
	}
	inst.CurrentValue = current
	inst.CompletionPct = res.Progress

	var reward *ledger.LedgerEntry
	if res.Met {
		reward, err = s.completeInstance(ctx, tx, &inst.QuestInstance, inst.Cadence, inst.BaseReward, inst.PeriodKey)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quest progress: %w", err)
	}

	return &quest.SubmitProgressResponse{Instance: &inst.QuestInstance, Reward: reward}, nil
}

// completeInstance performs the conditional ACTIVE -> COMPLETED write and
// awards the reward only when this call won the transition. The WHERE guard
// on status makes completion idempotent under retries and races.
func (s *QuestService) completeInstance(ctx context.Context, tx dbtx, inst *quest.QuestInstance, cadence quest.Cadence, baseReward int64, date string) (*ledger.LedgerEntry, error) {
	tag, err := tx.Exec(ctx, `
	UPDATE quest_instances
	SET status = 'COMPLETED', completion_pct = 100, completed_at = NOW(), updated_at = NOW()
	WHERE id = $1 AND status = 'ACTIVE'
	`, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete quest instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race: someone else completed or expired it first.
		return nil, nil
	}

	entry, err := s.rewards.Award(ctx, tx, inst.UserID, date, ledger.SourceQuest, &inst.ID, baseReward)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE quest_instances SET awarded_amount = $2 WHERE id = $1`, inst.ID, entry.FinalAmount); err != nil {
		return nil, fmt.Errorf("failed to record awarded amount: %w", err)
	}

	if err := s.events.Record(ctx, tx, inst.UserID, event.KindQuestCompleted, entry.FinalAmount); err != nil {
		return nil, err
	}

	now := time.Now()
	inst.Status = quest.StatusCompleted
	inst.CompletionPct = 100
	inst.CompletedAt = &now
	inst.AwardedAmount = &entry.FinalAmount

	questsCompletedTotal.WithLabelValues(string(cadence)).Inc()
	return entry, nil
}

// FailInstance is the explicit ACTIVE -> FAILED path used by challenge-style
// content. Terminal instances stay put.
func (s *QuestService) FailInstance(ctx context.Context, userID, instanceID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
	UPDATE quest_instances
	SET status = 'FAILED', updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND status = 'ACTIVE'
	`, instanceID, userID)
	if err != nil {
		return fmt.Errorf("failed to fail quest instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM quest_instances WHERE id = $1 AND user_id = $2)`, instanceID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check quest instance: %w", err)
		}
		if !exists {
			return ErrInstanceNotFound
		}
		return ErrInstanceTerminal
	}
	return nil
}

// expireInstances moves every still-ACTIVE instance for the period to
// EXPIRED. One-way, no reward.
func (s *QuestService) expireInstances(ctx context.Context, tx dbtx, userID uuid.UUID, periodKey string) (int, error) {
	tag, err := tx.Exec(ctx, `
	UPDATE quest_instances
	SET status = 'EXPIRED', updated_at = NOW()
	WHERE user_id = $1 AND period_key = $2 AND status = 'ACTIVE'
	`, userID, periodKey)
	if err != nil {
		return 0, fmt.Errorf("failed to expire quest instances: %w", err)
	}
	n := int(tag.RowsAffected())
	questsExpiredTotal.Add(float64(n))
	return n, nil
}

// refreshWeeklyProgress recomputes every ACTIVE weekly instance for the week
// as days-satisfying-condition vs the template's target day count, scanning
// the daily logs of the instance's own week. Hitting the target completes
// the quest, with the award landing on awardDate's log.
func (s *QuestService) refreshWeeklyProgress(ctx context.Context, tx dbtx, userID uuid.UUID, weekKey string, awardDate string) error {
	weekDates, err := clock.WeekSpan(weekKey)
	if err != nil {
		return err
	}

	query := `
	SELECT qi.id, qi.user_id, qi.template_id, qi.period_key, qi.status, qi.current_value, qi.target_value, qi.completion_pct, qi.completed_at, qi.awarded_amount, qi.created_at, qi.updated_at,
	       qt.base_reward, qt.week_condition, qt.week_target
	FROM quest_instances qi
	JOIN quest_templates qt ON qt.id = qi.template_id
	WHERE qi.user_id = $1 AND qi.period_key = $2 AND qt.cadence = 'WEEKLY' AND qi.status = 'ACTIVE'
	FOR UPDATE OF qi
	`

	rows, err := tx.Query(ctx, query, userID, weekKey)
	if err != nil {
		return fmt.Errorf("failed to list weekly instances: %w", err)
	}

	type weekly struct {
		inst       quest.QuestInstance
		baseReward int64
		cond       *quest.WeekCondition
		target     *int
	}
	weeklies := []weekly{}
	for rows.Next() {
		var w weekly
		err := rows.Scan(
			&w.inst.ID, &w.inst.UserID, &w.inst.TemplateID, &w.inst.PeriodKey, &w.inst.Status,
			&w.inst.CurrentValue, &w.inst.TargetValue, &w.inst.CompletionPct,
			&w.inst.CompletedAt, &w.inst.AwardedAmount, &w.inst.CreatedAt, &w.inst.UpdatedAt,
			&w.baseReward, &w.cond, &w.target,
		)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan weekly instance: %w", err)
		}
		weeklies = append(weeklies, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate weekly instances: %w", err)
	}

	for _, w := range weeklies {
		if w.cond == nil || w.target == nil || *w.target <= 0 {
			continue
		}

		days, err := s.countQualifyingDays(ctx, tx, userID, *w.cond, weekDates[0], weekDates[6])
		if err != nil {
			return err
		}

		target := *w.target
		pct := float64(days) / float64(target) * 100
		if pct > 100 {
			pct = 100
		}

		if _, err := tx.Exec(ctx, `
		UPDATE quest_instances
		SET current_value = $2, completion_pct = $3, updated_at = NOW()
		WHERE id = $1
		`, w.inst.ID, float64(days), pct); err != nil {
			return fmt.Errorf("failed to update weekly progress: %w", err)
		}

		if days >= target {
			if _, err := s.completeInstance(ctx, tx, &w.inst, quest.CadenceWeekly, w.baseReward, awardDate); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *QuestService) countQualifyingDays(ctx context.Context, tx dbtx, userID uuid.UUID, cond quest.WeekCondition, from, to string) (int, error) {
	var where string
	switch cond {
	case quest.WeekCoreComplete:
		where = "closed_at IS NOT NULL AND core_total > 0 AND core_completed >= core_total"
	case quest.WeekPerfectDay:
		where = "perfect_day = true"
	case quest.WeekBonusDone:
		where = "bonus_completed > 0"
	default:
		return 0, nil
	}

	query := fmt.Sprintf(`
	SELECT COUNT(*)
	FROM daily_logs
	WHERE user_id = $1 AND date >= $2 AND date <= $3 AND %s
	`, where)

	var count int
	if err := tx.QueryRow(ctx, query, userID, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count qualifying days: %w", err)
	}
	return count, nil
}

// bonusPoolIndex picks deterministically from the rotating pool: the same
// (date, user) always lands on the same quest, different days and users
// spread across the pool. The salt derives the reroll's second choice.
func bonusPoolIndex(date string, userID uuid.UUID, salt string, poolSize int) int {
	h := fnv.New64a()
	h.Write([]byte(date))
	h.Write([]byte{'|'})
	h.Write([]byte(userID.String()))
	if salt != "" {
		h.Write([]byte{'|'})
		h.Write([]byte(salt))
	}
	return int(h.Sum64() % uint64(poolSize))
}

func (s *QuestService) bonusPool(ctx context.Context, tx dbtx) ([]quest.QuestTemplate, error) {
	query := `
	SELECT id, name, requirement, base_reward
	FROM quest_templates
	WHERE is_active = true AND cadence = 'BONUS'
	ORDER BY id
	`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus templates: %w", err)
	}
	defer rows.Close()

	pool := []quest.QuestTemplate{}
	for rows.Next() {
		var t quest.QuestTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Requirement, &t.BaseReward); err != nil {
			return nil, fmt.Errorf("failed to scan bonus template: %w", err)
		}
		pool = append(pool, t)
	}
	return pool, rows.Err()
}

func (s *QuestService) ensureBonusInstance(ctx context.Context, tx dbtx, userID uuid.UUID, date string) error {
	var exists bool
	err := tx.QueryRow(ctx, `
	SELECT EXISTS(
		SELECT 1 FROM quest_instances qi
		JOIN quest_templates qt ON qt.id = qi.template_id
		WHERE qi.user_id = $1 AND qi.period_key = $2 AND qt.cadence = 'BONUS'
	)`, userID, date).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check bonus instance: %w", err)
	}
	if exists {
		return nil
	}

	pool, err := s.bonusPool(ctx, tx)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		return nil
	}

	pick := pool[bonusPoolIndex(date, userID, "", len(pool))]
	return s.insertInstance(ctx, tx, userID, pick.ID, date, targetFromRequirement(pick.Requirement))
}

// RerollBonus swaps today's rotating quest for a second deterministic pick
// and burns the user's reroll for the day. One reroll per day, ever.
func (s *QuestService) RerollBonus(ctx context.Context, userID uuid.UUID) (*quest.RerollBonusResponse, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tz, err := s.userTimezone(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	local := clock.Now(tz)

	// Lazily create today's log so the reroll flag has a row to live on.
	if _, err := tx.Exec(ctx, `
	INSERT INTO daily_logs (id, user_id, date, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, date) DO NOTHING
	`, uuid.New(), userID, local.Date); err != nil {
		return nil, fmt.Errorf("failed to create daily log: %w", err)
	}

	var rerolled bool
	var closedAt *time.Time
	err = tx.QueryRow(ctx, `
	SELECT bonus_rerolled, closed_at FROM daily_logs
	WHERE user_id = $1 AND date = $2
	FOR UPDATE
	`, userID, local.Date).Scan(&rerolled, &closedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to lock daily log: %w", err)
	}
	if closedAt != nil {
		return nil, ErrDayAlreadyClosed
	}
	if rerolled {
		return nil, ErrRerollUsed
	}

	pool, err := s.bonusPool(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoBonusPool
	}

	first := bonusPoolIndex(local.Date, userID, "", len(pool))
	second := bonusPoolIndex(local.Date, userID, "reroll", len(pool))
	if second == first && len(pool) > 1 {
		second = (second + 1) % len(pool)
	}

	// Retire today's still-active bonus quest before dealing the new one.
	if _, err := tx.Exec(ctx, `
	UPDATE quest_instances qi
	SET status = 'EXPIRED', updated_at = NOW()
	FROM quest_templates qt
	WHERE qt.id = qi.template_id AND qi.user_id = $1 AND qi.period_key = $2
	  AND qt.cadence = 'BONUS' AND qi.status = 'ACTIVE'
	`, userID, local.Date); err != nil {
		return nil, fmt.Errorf("failed to expire bonus instance: %w", err)
	}

	pick := pool[second]
	if err := s.insertInstance(ctx, tx, userID, pick.ID, local.Date, targetFromRequirement(pick.Requirement)); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
	UPDATE daily_logs SET bonus_rerolled = true
	WHERE user_id = $1 AND date = $2
	`, userID, local.Date); err != nil {
		return nil, fmt.Errorf("failed to mark reroll used: %w", err)
	}

	bonusList, err := s.listInstances(ctx, tx, userID, local.Date, quest.CadenceBonus)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reroll: %w", err)
	}

	resp := &quest.RerollBonusResponse{}
	for _, b := range bonusList {
		if b.Status == quest.StatusActive {
			resp.Bonus = b
			break
		}
	}
	return resp, nil
}
