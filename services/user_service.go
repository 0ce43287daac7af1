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

	"lifeQuestAPI/internal/progression"
	"lifeQuestAPI/internal/user"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	u := &user.User{
		ID:       uuid.New().String(),
		Email:    req.Email,
		Username: req.Username,
		Timezone: tz,
		Level:    1,
		Season:   1,
	}

	query := `
	INSERT INTO users (id, email, username, timezone, level, season, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query, u.ID, u.Email, u.Username, u.Timezone, u.Level, u.Season).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	query := `
	SELECT id, email, username, level, total_xp, current_streak, longest_streak, perfect_streak, hard_mode, season, timezone, debuff_penalty, debuff_expires_at, created_at, updated_at
	FROM users
	WHERE id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.Level,
		&u.TotalXP,
		&u.CurrentStreak,
		&u.LongestStreak,
		&u.PerfectStreak,
		&u.HardMode,
		&u.Season,
		&u.Timezone,
		&u.DebuffPenalty,
		&u.DebuffExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetProfile returns the aggregate plus exact level progress.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*user.ProfileResponse, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &user.ProfileResponse{
		User:          u,
		LevelProgress: progression.ProgressFor(u.TotalXP),
		HardModeOpen:  progression.HardModeUnlocked(u.Level, u.Season),
	}, nil
}

// SetHardMode stores the opt-in flag. The 1.5x factor itself stays gated on
// the unlock condition at award time, and flipping the flag never rewrites
// past ledger entries.
func (s *UserService) SetHardMode(ctx context.Context, userID uuid.UUID, enabled bool) (*user.User, error) {
	tag, err := s.db.Exec(ctx, `
	UPDATE users SET hard_mode = $2, updated_at = NOW()
	WHERE id = $1
	`, userID, enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to set hard mode: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUser(ctx, userID)
}

// ApplyDebuff places a time-boxed experience reduction on the user. Expiry
// is evaluated on read; nothing cleans the columns up afterwards.
func (s *UserService) ApplyDebuff(ctx context.Context, userID uuid.UUID, penalty decimal.Decimal, duration time.Duration) (*user.User, error) {
	if penalty.IsNegative() || penalty.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("debuff penalty must be within [0,1]")
	}

	expiresAt := time.Now().Add(duration)
	tag, err := s.db.Exec(ctx, `
	UPDATE users SET debuff_penalty = $2, debuff_expires_at = $3, updated_at = NOW()
	WHERE id = $1
	`, userID, penalty, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to apply debuff: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrUserNotFound
	}

	return s.GetUser(ctx, userID)
}
