package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDB creates a test database connection
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL or DATABASE_URL must be set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	return pool
}

// CleanupTestDB cleans up test data
func CleanupTestDB(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "DELETE FROM users WHERE email LIKE 'test%@example.com'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test data: %v", err)
	}
	_, err = pool.Exec(ctx, "DELETE FROM quest_templates WHERE name LIKE 'Test %'")
	if err != nil {
		t.Logf("Warning: failed to cleanup test templates: %v", err)
	}
	pool.Close()
}

// CreateTestUser inserts a user row and returns its ID
func CreateTestUser(t *testing.T, pool *pgxpool.Pool, timezone string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	email := fmt.Sprintf("test%d@example.com", time.Now().UnixNano())

	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, username, timezone, level, total_xp, season)
		VALUES ($1, $2, $3, $4, 1, 0, 1)`,
		id, email, "testuser_"+id.String()[:8], timezone)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return id
}

// CreateTestTemplate inserts a quest template row and returns its ID
func CreateTestTemplate(t *testing.T, pool *pgxpool.Pool, cadence, name string, isCore bool, baseReward int64, requirement string) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Exec(ctx, `
		INSERT INTO quest_templates (id, name, description, cadence, category, stat, is_core, base_reward, requirement, is_active)
		VALUES ($1, $2, '', $3, 'health', 'discipline', $4, $5, $6, TRUE)`,
		id, name, cadence, isCore, baseReward, requirement)
	if err != nil {
		t.Fatalf("Failed to create test template: %v", err)
	}

	return id
}

// CreateTestWeeklyTemplate inserts a weekly template with a day-count condition
func CreateTestWeeklyTemplate(t *testing.T, pool *pgxpool.Pool, name string, baseReward int64, condition string, target int) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Exec(ctx, `
		INSERT INTO quest_templates (id, name, description, cadence, category, stat, is_core, base_reward, requirement, week_condition, week_target, is_active)
		VALUES ($1, $2, '', 'WEEKLY', 'health', 'discipline', FALSE, $3, '{"type":"boolean","metric":"noop"}', $4, $5, TRUE)`,
		id, name, baseReward, condition, target)
	if err != nil {
		t.Fatalf("Failed to create test weekly template: %v", err)
	}

	return id
}

// CreateClosedDailyLog seeds a sealed daily log, as CloseDay would leave it
func CreateClosedDailyLog(t *testing.T, pool *pgxpool.Pool, userID uuid.UUID, date string, coreTotal, coreCompleted int, perfect bool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO daily_logs (id, user_id, date, core_total, core_completed, perfect_day, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.New(), userID, date, coreTotal, coreCompleted, perfect)
	if err != nil {
		t.Fatalf("Failed to create closed daily log: %v", err)
	}
}

// CreateQuestInstance inserts an ACTIVE instance row for an arbitrary period
func CreateQuestInstance(t *testing.T, pool *pgxpool.Pool, userID, templateID uuid.UUID, periodKey string, target float64) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()

	_, err := pool.Exec(ctx, `
		INSERT INTO quest_instances (id, user_id, template_id, period_key, status, current_value, target_value, completion_pct)
		VALUES ($1, $2, $3, $4, 'ACTIVE', 0, $5, 0)`,
		id, userID, templateID, periodKey, target)
	if err != nil {
		t.Fatalf("Failed to create quest instance: %v", err)
	}

	return id
}

// DeactivateTemplates marks every active template inactive so a test can
// control exactly which quests appear on the board.
func DeactivateTemplates(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, "UPDATE quest_templates SET is_active = FALSE")
	if err != nil {
		t.Fatalf("Failed to deactivate templates: %v", err)
	}
}
