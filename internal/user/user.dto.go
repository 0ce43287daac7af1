package user

import "lifeQuestAPI/internal/progression"

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=30"`
	Timezone string `json:"timezone,omitempty"`
}

type SetHardModeRequest struct {
	Enabled bool `json:"enabled"`
}

type ApplyDebuffRequest struct {
	Penalty string `json:"penalty" validate:"required"`
	Hours   int    `json:"hours" validate:"required,min=1"`
}

type ProfileResponse struct {
	User          *User                     `json:"user"`
	LevelProgress progression.LevelProgress `json:"level_progress"`
	HardModeOpen  bool                      `json:"hard_mode_unlocked"`
}
