package repository

import (
	"context"

	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/gofrs/uuid/v5"
)

// SubmissionRepository provides access to submissions and the combined
// submit-and-progress write.
type SubmissionRepository interface {
	// CreateWithProgress inserts the submission and applies the user's
	// progress update inside one transaction. A duplicate
	// (challenge, user, day) insert fails the whole transaction with
	// errs.ErrAlreadySubmitted and leaves progress untouched. Returns
	// the updated user.
	CreateWithProgress(ctx context.Context, sub *model.Submission, completed bool) (*model.User, error)

	// ExistsForDay reports whether a submission exists for
	// (challenge, user) on the given YYYY-MM-DD day.
	ExistsForDay(ctx context.Context, challengeID, userID uuid.UUID, day string) (bool, error)

	// GetOwn returns the user's submission for a challenge, if any.
	GetOwn(ctx context.Context, challengeID, userID uuid.UUID) (*model.Submission, error)

	// ListByChallenge returns all submissions for a challenge ordered
	// by submission time.
	ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]model.Submission, error)
}
