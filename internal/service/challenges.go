package service

import (
	"context"
	"errors"
	"time"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/daybreak-dev/daybreak/internal/repository"
	"github.com/daybreak-dev/daybreak/internal/window"
	"github.com/gofrs/uuid/v5"
)

// ChallengeService coordinates today's challenge, submission status and
// the gated submit operation.
type ChallengeService interface {
	// Today resolves today's challenge and whether the user has
	// already submitted for it. A day without a challenge yields a nil
	// challenge, not an error.
	Today(ctx context.Context, userID uuid.UUID) (*model.Challenge, bool, error)

	// Submit records the user's answer for today's challenge.
	// Preconditions: a challenge exists for today, the window is open
	// and the user has not submitted yet. On success the submission
	// and the progress update land in one transaction and the updated
	// profile is returned.
	Submit(ctx context.Context, userID uuid.UUID, answer string) (*model.User, error)

	// Create stores a new challenge definition.
	Create(ctx context.Context, c *model.Challenge) error

	// List returns all challenge definitions.
	List(ctx context.Context) ([]model.Challenge, error)

	// Submissions returns all submissions for one challenge.
	Submissions(ctx context.Context, challengeID uuid.UUID) ([]model.Submission, error)

	// OwnSubmission returns the user's answer text for today's
	// challenge, or "" when there is none.
	OwnSubmission(ctx context.Context, userID uuid.UUID) (string, error)
}

type ChallengeServiceImpl struct {
	challenges  repository.ChallengeRepository
	submissions repository.SubmissionRepository
	now         func() time.Time
}

// NewChallengeService constructs ChallengeService. The now func is the
// single time source for window gating and day resolution; nil means
// time.Now.
func NewChallengeService(challenges repository.ChallengeRepository, submissions repository.SubmissionRepository, now func() time.Time) *ChallengeServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ChallengeServiceImpl{challenges: challenges, submissions: submissions, now: now}
}

// today returns the current calendar day as YYYY-MM-DD.
func (s *ChallengeServiceImpl) today() string {
	return s.now().Format(model.DateLayout)
}

// Today loads today's challenge and the user's submission status.
func (s *ChallengeServiceImpl) Today(ctx context.Context, userID uuid.UUID) (*model.Challenge, bool, error) {
	if userID == uuid.Nil {
		return nil, false, errors.New("validation: empty userID")
	}
	ch, err := s.challenges.GetByDate(ctx, s.today())
	if errors.Is(err, errs.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	submitted, err := s.submissions.ExistsForDay(ctx, ch.ID, userID, s.today())
	if err != nil {
		return nil, false, err
	}
	return ch, submitted, nil
}

// Submit gates on all preconditions, then writes the submission and the
// progress update atomically. Answers carry no length or content
// validation.
func (s *ChallengeServiceImpl) Submit(ctx context.Context, userID uuid.UUID, answer string) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	now := s.now()

	ch, err := s.challenges.GetByDate(ctx, now.Format(model.DateLayout))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrNoChallenge
	}
	if err != nil {
		return nil, err
	}

	if !window.Classify(now).Open {
		return nil, errs.ErrWindowClosed
	}

	// Fast-path check; the unique index still backs it under races.
	submitted, err := s.submissions.ExistsForDay(ctx, ch.ID, userID, now.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, errs.ErrAlreadySubmitted
	}

	sid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	sub := &model.Submission{
		ID:          sid,
		ChallengeID: ch.ID,
		UserID:      userID,
		Answer:      answer,
		SubmittedAt: now,
		SubmittedOn: now.Format(model.DateLayout),
	}
	return s.submissions.CreateWithProgress(ctx, sub, true)
}

// Create validates the challenge shape and stores it.
func (s *ChallengeServiceImpl) Create(ctx context.Context, c *model.Challenge) error {
	if c.Question == "" {
		return errors.New("validation: empty question")
	}
	if _, err := time.Parse(model.DateLayout, c.Date); err != nil {
		return errors.New("validation: bad date")
	}
	switch c.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return errors.New("validation: bad difficulty")
	}
	switch c.Type {
	case model.TypeCoding, model.TypeConceptual:
	default:
		return errors.New("validation: bad type")
	}
	if c.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		c.ID = id
	}
	return s.challenges.Create(ctx, c)
}

// List returns all challenge definitions.
func (s *ChallengeServiceImpl) List(ctx context.Context) ([]model.Challenge, error) {
	return s.challenges.List(ctx)
}

// Submissions returns all submissions for one challenge.
func (s *ChallengeServiceImpl) Submissions(ctx context.Context, challengeID uuid.UUID) ([]model.Submission, error) {
	if challengeID == uuid.Nil {
		return nil, errors.New("validation: empty challengeID")
	}
	return s.submissions.ListByChallenge(ctx, challengeID)
}

// OwnSubmission returns the user's answer for today's challenge.
func (s *ChallengeServiceImpl) OwnSubmission(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("validation: empty userID")
	}
	ch, err := s.challenges.GetByDate(ctx, s.today())
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sub, err := s.submissions.GetOwn(ctx, ch.ID, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sub.Answer, nil
}
