package postgres

import (
	"context"
	"errors"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/jackc/pgx/v5"
)

// ChallengeRepo implements ChallengeRepository using PostgreSQL.
type ChallengeRepo struct{ db *DB }

// NewChallengeRepo constructs a challenge repository.
func NewChallengeRepo(db *DB) *ChallengeRepo { return &ChallengeRepo{db: db} }

// Create inserts a new challenge row.
func (r *ChallengeRepo) Create(ctx context.Context, c *model.Challenge) error {
	const q = `
INSERT INTO challenges (id, date, question, sample_answer, difficulty, type)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.Date, c.Question, c.SampleAnswer, string(c.Difficulty), string(c.Type))
	return err
}

// GetByDate selects the earliest-created challenge for a date. Dates
// are not unique, so the tie-break is (created_at, id).
func (r *ChallengeRepo) GetByDate(ctx context.Context, date string) (*model.Challenge, error) {
	const q = `
SELECT id, date, question, sample_answer, difficulty, type, created_at
FROM challenges WHERE date=$1
ORDER BY created_at, id
LIMIT 1`
	row := r.db.Pool.QueryRow(ctx, q, date)
	var c model.Challenge
	if err := row.Scan(&c.ID, &c.Date, &c.Question, &c.SampleAnswer, &c.Difficulty, &c.Type, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all challenges, newest date first.
func (r *ChallengeRepo) List(ctx context.Context) ([]model.Challenge, error) {
	const q = `
SELECT id, date, question, sample_answer, difficulty, type, created_at
FROM challenges
ORDER BY date DESC, created_at`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Challenge
	for rows.Next() {
		var c model.Challenge
		if err = rows.Scan(&c.ID, &c.Date, &c.Question, &c.SampleAnswer, &c.Difficulty, &c.Type, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
