package repository

import (
	"context"

	"github.com/daybreak-dev/daybreak/internal/model"
)

// ChallengeRepository provides access to challenge definitions.
type ChallengeRepository interface {
	// Create inserts a new challenge definition.
	Create(ctx context.Context, c *model.Challenge) error

	// GetByDate returns the challenge for a YYYY-MM-DD date. When the
	// store holds several for one date, the earliest created wins.
	GetByDate(ctx context.Context, date string) (*model.Challenge, error)

	// List returns all challenges ordered by date descending.
	List(ctx context.Context) ([]model.Challenge, error)
}
