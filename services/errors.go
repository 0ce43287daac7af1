package services

import "errors"

// Sentinel errors the handlers map onto HTTP statuses. Duplicate instance
// creation is deliberately absent: a uniqueness conflict there is absorbed
// and the existing row returned.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTemplateNotFound = errors.New("quest template not found")
	ErrInstanceNotFound = errors.New("quest instance not found")
	ErrDayNotFound      = errors.New("daily log not found")

	ErrInstanceTerminal = errors.New("quest instance is in a terminal state")
	ErrDayAlreadyClosed = errors.New("day already closed")
	ErrRerollUsed       = errors.New("bonus reroll already used today")
	ErrNoBonusPool      = errors.New("no active bonus quests configured")
)
