package postgres

import (
	"context"
	"errors"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, name, email, pwd_hash, salt_auth, is_admin, streak_count, total_challenges, badges, provider, subject, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PwdHash, &u.SaltAuth, &u.IsAdmin,
		&u.StreakCount, &u.TotalChallenges, &u.Badges, &u.Provider, &u.Subject, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, name, email, pwd_hash, salt_auth, is_admin, streak_count, total_challenges, badges, provider, subject)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Name, u.Email, u.PwdHash, u.SaltAuth,
		u.IsAdmin, u.StreakCount, u.TotalChallenges, u.Badges, u.Provider, u.Subject)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByFederated selects a user by federated identity.
func (r *UserRepo) GetByFederated(ctx context.Context, provider, subject string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE provider=$1 AND subject=$2`
	return scanUser(r.db.Pool.QueryRow(ctx, q, provider, subject))
}

// ApplyProgress locks the user row, applies the progress rules in Go
// and writes the updated counters and badge list back.
func (r *UserRepo) ApplyProgress(ctx context.Context, id uuid.UUID, completed bool) (u *model.User, err error) {
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

	u, err = applyProgressTx(ctx, tx, id, completed)
	return u, err
}

// applyProgressTx runs the progress update inside an existing transaction.
// Shared with SubmissionRepo.CreateWithProgress.
func applyProgressTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, completed bool) (*model.User, error) {
	const sel = `SELECT ` + userCols + ` FROM users WHERE id=$1 FOR UPDATE`
	u, err := scanUser(tx.QueryRow(ctx, sel, id))
	if err != nil {
		return nil, err
	}
	u.ApplyProgress(completed)

	const upd = `UPDATE users SET streak_count=$2, total_challenges=$3, badges=$4 WHERE id=$1`
	if _, err := tx.Exec(ctx, upd, id, u.StreakCount, u.TotalChallenges, u.Badges); err != nil {
		return nil, err
	}
	return u, nil
}
