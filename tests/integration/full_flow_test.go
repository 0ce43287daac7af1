package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeQuestAPI/handlers"
	"lifeQuestAPI/internal/types/daylog"
	"lifeQuestAPI/internal/types/quest"
	"lifeQuestAPI/middleware"
	"lifeQuestAPI/services"
	"lifeQuestAPI/tests/helpers"
)

// TestFullQuestDayFlow simulates a complete user day: board generation,
// progress submission, quest completion with a reward, and day close.
func TestFullQuestDayFlow(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	events := services.NewEventRecorder(pool)
	rewards := services.NewRewardService(pool, events)
	questService := services.NewQuestService(pool, rewards, events)
	dayService := services.NewDayService(pool, questService, rewards, events)
	userService := services.NewUserService(pool)

	questHandler := handlers.NewQuestHandler(questService)
	dayHandler := handlers.NewDayHandler(dayService)
	userHandler := handlers.NewUserHandler(userService, rewards)

	helpers.DeactivateTemplates(t, pool)
	helpers.CreateTestTemplate(t, pool, "DAILY", "Test Walk", true, 100,
		`{"type":"numeric","metric":"steps","operator":"gte","value":10000}`)
	helpers.CreateTestTemplate(t, pool, "BONUS", "Test Stretch", false, 40,
		`{"type":"boolean","metric":"stretched","expected":true}`)
	helpers.CreateTestWeeklyTemplate(t, pool, "Test Consistency", 200, "core_complete", 5)

	ctx := context.Background()
	userID := helpers.CreateTestUser(t, pool, "UTC")

	// Step 1: First board request materializes the day's instances.
	t.Log("Step 1: Get quest board")

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/quests/board", nil)
	req1 = req1.WithContext(context.WithValue(req1.Context(), middleware.UserIDKey, userID))
	rr1 := httptest.NewRecorder()

	questHandler.GetQuestBoard(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code, rr1.Body.String())

	var board quest.QuestBoardResponse
	require.NoError(t, json.Unmarshal(rr1.Body.Bytes(), &board))
	require.Len(t, board.Daily, 1)
	require.Len(t, board.Weekly, 1)
	require.NotNil(t, board.Bonus)
	assert.Equal(t, quest.StatusActive, board.Daily[0].Status)
	assert.Equal(t, float64(10000), board.Daily[0].TargetValue)

	dailyID := board.Daily[0].ID
	bonusID := board.Bonus.ID

	// Step 2: A repeat board request returns the same instances.
	t.Log("Step 2: Board is idempotent")

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/quests/board", nil)
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.UserIDKey, userID))
	rr2 := httptest.NewRecorder()

	questHandler.GetQuestBoard(rr2, req2)
	require.Equal(t, http.StatusOK, rr2.Code)

	var board2 quest.QuestBoardResponse
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &board2))
	require.Len(t, board2.Daily, 1)
	assert.Equal(t, dailyID, board2.Daily[0].ID)

	// Step 3: Partial progress keeps the quest active, no reward.
	t.Log("Step 3: Submit partial progress")

	resp, err := questService.SubmitProgress(ctx, userID, dailyID, map[string]float64{"steps": 5000})
	require.NoError(t, err)
	assert.Equal(t, quest.StatusActive, resp.Instance.Status)
	assert.InDelta(t, 50, resp.Instance.CompletionPct, 0.001)
	assert.Nil(t, resp.Reward)

	// Step 4: Meeting the target completes the quest and pays out.
	t.Log("Step 4: Complete the daily quest over HTTP")

	body := bytes.NewReader([]byte(`{"metrics":{"steps":12000}}`))
	req4 := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/quests/%s/progress", dailyID), body)
	req4.Header.Set("Content-Type", "application/json")
	req4 = req4.WithContext(context.WithValue(req4.Context(), middleware.UserIDKey, userID))
	req4 = mux.SetURLVars(req4, map[string]string{"instanceID": dailyID.String()})
	rr4 := httptest.NewRecorder()

	questHandler.SubmitProgress(rr4, req4)
	require.Equal(t, http.StatusOK, rr4.Code, rr4.Body.String())

	var completed quest.SubmitProgressResponse
	require.NoError(t, json.Unmarshal(rr4.Body.Bytes(), &completed))
	assert.Equal(t, quest.StatusCompleted, completed.Instance.Status)
	require.NotNil(t, completed.Reward)
	assert.Equal(t, int64(100), completed.Reward.BaseAmount)
	assert.GreaterOrEqual(t, completed.Reward.FinalAmount, completed.Reward.BaseAmount)
	assert.Equal(t, completed.Reward.TotalBefore+completed.Reward.FinalAmount, completed.Reward.TotalAfter)

	// Step 5: Repeating the submission never pays twice.
	t.Log("Step 5: Completion is idempotent")

	resp, err = questService.SubmitProgress(ctx, userID, dailyID, map[string]float64{"steps": 20000})
	require.NoError(t, err)
	assert.Equal(t, quest.StatusCompleted, resp.Instance.Status)
	assert.Nil(t, resp.Reward)

	// Step 6: Complete the bonus quest too.
	t.Log("Step 6: Complete the bonus quest")

	resp, err = questService.SubmitProgress(ctx, userID, bonusID, map[string]float64{"stretched": 1})
	require.NoError(t, err)
	assert.Equal(t, quest.StatusCompleted, resp.Instance.Status)
	require.NotNil(t, resp.Reward)

	// Step 7: Close the day.
	t.Log("Step 7: Close the day")

	req7 := httptest.NewRequest(http.MethodPost, "/api/v1/day/close", nil)
	req7 = req7.WithContext(context.WithValue(req7.Context(), middleware.UserIDKey, userID))
	rr7 := httptest.NewRecorder()

	dayHandler.CloseDay(rr7, req7)
	require.Equal(t, http.StatusOK, rr7.Code, rr7.Body.String())

	var summary daylog.DaySummary
	require.NoError(t, json.Unmarshal(rr7.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.CoreTotal)
	assert.Equal(t, 1, summary.CoreCompleted)
	assert.Equal(t, 1, summary.BonusCompleted)
	assert.True(t, summary.PerfectDay)
	assert.Equal(t, 1, summary.CurrentStreak)
	assert.Equal(t, 1, summary.PerfectStreak)
	assert.Greater(t, summary.XPEarned, int64(0))

	// Step 8: Closing twice is rejected.
	t.Log("Step 8: Double close is rejected")

	req8 := httptest.NewRequest(http.MethodPost, "/api/v1/day/close", nil)
	req8 = req8.WithContext(context.WithValue(req8.Context(), middleware.UserIDKey, userID))
	rr8 := httptest.NewRecorder()

	dayHandler.CloseDay(rr8, req8)
	assert.Equal(t, http.StatusConflict, rr8.Code)

	// Step 9: Day status reflects the sealed day.
	t.Log("Step 9: Day status shows closed")

	status, err := dayService.GetDayStatus(ctx, userID)
	require.NoError(t, err)
	assert.True(t, status.Closed)

	// Step 10: Ledger holds every award from today.
	t.Log("Step 10: Ledger is auditable")

	req10 := httptest.NewRequest(http.MethodGet, "/api/v1/user/ledger", nil)
	req10 = req10.WithContext(context.WithValue(req10.Context(), middleware.UserIDKey, userID))
	rr10 := httptest.NewRecorder()

	userHandler.GetLedger(rr10, req10)
	require.Equal(t, http.StatusOK, rr10.Code)

	entries, err := rewards.GetLedger(ctx, userID, 50)
	require.NoError(t, err)
	// daily quest + bonus quest + perfect day bonus
	require.GreaterOrEqual(t, len(entries), 3)

	var ledgerTotal int64
	for _, e := range entries {
		ledgerTotal += e.FinalAmount
	}

	profile, err := userService.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, ledgerTotal, profile.User.TotalXP, "ledger must reconcile with the aggregate")
	assert.Equal(t, summary.XPEarned, profile.User.TotalXP)
}

// TestSubmitProgressWrongUser ensures one user cannot move another user's quest.
func TestSubmitProgressWrongUser(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	events := services.NewEventRecorder(pool)
	rewards := services.NewRewardService(pool, events)
	questService := services.NewQuestService(pool, rewards, events)

	helpers.DeactivateTemplates(t, pool)
	helpers.CreateTestTemplate(t, pool, "DAILY", "Test Read", true, 50,
		`{"type":"numeric","metric":"pages","operator":"gte","value":20}`)

	ctx := context.Background()
	owner := helpers.CreateTestUser(t, pool, "UTC")
	intruder := helpers.CreateTestUser(t, pool, "UTC")

	board, err := questService.GetQuestBoard(ctx, owner)
	require.NoError(t, err)
	require.Len(t, board.Daily, 1)

	_, err = questService.SubmitProgress(ctx, intruder, board.Daily[0].ID, map[string]float64{"pages": 25})
	assert.ErrorIs(t, err, services.ErrInstanceNotFound)

	// The owner's instance is untouched.
	board, err = questService.GetQuestBoard(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, quest.StatusActive, board.Daily[0].Status)
	assert.Equal(t, float64(0), board.Daily[0].CurrentValue)
}

// TestBonusRerollOncePerDay verifies the single reroll and its lockout.
func TestBonusRerollOncePerDay(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	events := services.NewEventRecorder(pool)
	rewards := services.NewRewardService(pool, events)
	questService := services.NewQuestService(pool, rewards, events)

	helpers.DeactivateTemplates(t, pool)
	helpers.CreateTestTemplate(t, pool, "BONUS", "Test Plank", false, 30,
		`{"type":"boolean","metric":"planked","expected":true}`)
	helpers.CreateTestTemplate(t, pool, "BONUS", "Test Journal", false, 30,
		`{"type":"boolean","metric":"journaled","expected":true}`)

	ctx := context.Background()
	userID := helpers.CreateTestUser(t, pool, "UTC")

	board, err := questService.GetQuestBoard(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, board.Bonus)
	firstTemplate := board.Bonus.TemplateID

	reroll, err := questService.RerollBonus(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, reroll.Bonus)
	assert.NotEqual(t, firstTemplate, reroll.Bonus.TemplateID)
	assert.Equal(t, quest.StatusActive, reroll.Bonus.Status)

	_, err = questService.RerollBonus(ctx, userID)
	assert.ErrorIs(t, err, services.ErrRerollUsed)

	// The old bonus instance is expired, the new one is what the board shows.
	board, err = questService.GetQuestBoard(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, board.Bonus)
	assert.Equal(t, reroll.Bonus.TemplateID, board.Bonus.TemplateID)
}

// TestHardModeAndDebuffEndpoints exercises the profile controls end to end.
func TestHardModeAndDebuffEndpoints(t *testing.T) {
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	events := services.NewEventRecorder(pool)
	rewards := services.NewRewardService(pool, events)
	userHandler := handlers.NewUserHandler(userService, rewards)

	userID := helpers.CreateTestUser(t, pool, "America/New_York")

	req1 := httptest.NewRequest(http.MethodPut, "/api/v1/user/hard-mode", bytes.NewReader([]byte(`{"enabled":true}`)))
	req1.Header.Set("Content-Type", "application/json")
	req1 = req1.WithContext(context.WithValue(req1.Context(), middleware.UserIDKey, userID))
	rr1 := httptest.NewRecorder()

	userHandler.SetHardMode(rr1, req1)
	require.Equal(t, http.StatusOK, rr1.Code, rr1.Body.String())

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/user/debuff", bytes.NewReader([]byte(`{"penalty":"0.25","hours":24}`)))
	req2.Header.Set("Content-Type", "application/json")
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.UserIDKey, userID))
	rr2 := httptest.NewRecorder()

	userHandler.ApplyDebuff(rr2, req2)
	require.Equal(t, http.StatusOK, rr2.Code, rr2.Body.String())

	user, err := userService.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, user.HardMode)
	assert.Equal(t, "0.25", user.DebuffPenalty.String())
	require.NotNil(t, user.DebuffExpiresAt)
	assert.True(t, user.DebuffExpiresAt.After(time.Now()))
}
