package postgres

import (
	"context"
	"errors"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// SubmissionRepo implements SubmissionRepository using PostgreSQL.
type SubmissionRepo struct{ db *DB }

// NewSubmissionRepo constructs a submission repository.
func NewSubmissionRepo(db *DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

// CreateWithProgress inserts the submission and applies the user's
// progress update in one transaction. The unique index on
// (challenge_id, user_id, submitted_on) turns a same-day duplicate into
// errs.ErrAlreadySubmitted and rolls back the whole write, so the
// submission record and the progress counters can never diverge.
func (r *SubmissionRepo) CreateWithProgress(ctx context.Context, sub *model.Submission, completed bool) (u *model.User, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const ins = `
INSERT INTO submissions (id, challenge_id, user_id, answer, submitted_at, submitted_on)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.Exec(ctx, ins, sub.ID, sub.ChallengeID, sub.UserID, sub.Answer, sub.SubmittedAt, sub.SubmittedOn); err != nil {
		if isUniqueViolation(err) {
			err = errs.ErrAlreadySubmitted
		}
		return nil, err
	}

	u, err = applyProgressTx(ctx, tx, sub.UserID, completed)
	return u, err
}

// ExistsForDay reports whether a submission exists for (challenge, user, day).
func (r *SubmissionRepo) ExistsForDay(ctx context.Context, challengeID, userID uuid.UUID, day string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM submissions
  WHERE challenge_id=$1 AND user_id=$2 AND submitted_on=$3
)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, challengeID, userID, day).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// GetOwn returns the user's earliest submission for a challenge.
func (r *SubmissionRepo) GetOwn(ctx context.Context, challengeID, userID uuid.UUID) (*model.Submission, error) {
	const q = `
SELECT id, challenge_id, user_id, answer, submitted_at, submitted_on
FROM submissions
WHERE challenge_id=$1 AND user_id=$2
ORDER BY submitted_at
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, challengeID, userID)
	var s model.Submission
	if err := row.Scan(&s.ID, &s.ChallengeID, &s.UserID, &s.Answer, &s.SubmittedAt, &s.SubmittedOn); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByChallenge returns all submissions for a challenge ordered by time.
func (r *SubmissionRepo) ListByChallenge(ctx context.Context, challengeID uuid.UUID) ([]model.Submission, error) {
	const q = `
SELECT id, challenge_id, user_id, answer, submitted_at, submitted_on
FROM submissions
WHERE challenge_id=$1
ORDER BY submitted_at`
	rows, err := r.db.Pool.Query(ctx, q, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var s model.Submission
		if err = rows.Scan(&s.ID, &s.ChallengeID, &s.UserID, &s.Answer, &s.SubmittedAt, &s.SubmittedOn); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
