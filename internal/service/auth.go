// Package service contains application services for authentication,
// progress tracking and daily challenges.
package service

import (
	"context"
	"errors"
	"time"

	pkgcrypto "github.com/daybreak-dev/daybreak/internal/crypto"
	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/limiter"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/daybreak-dev/daybreak/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService defines account and progress operations.
type AuthService interface {
	// Register creates a new account with a default profile.
	Register(ctx context.Context, name, email, password string) (userID string, err error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, email, password, ip string) (tokens model.Tokens, user model.User, err error)
	// LoginFederated signs in a provider-asserted identity, creating a
	// default profile on first sign-in.
	LoginFederated(ctx context.Context, provider, subject, email, name string) (model.Tokens, model.User, error)
	// Profile returns the authoritative account state.
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// ApplyProgress records one submission outcome against the profile.
	ApplyProgress(ctx context.Context, userID uuid.UUID, completed bool) (*model.User, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim}
}

// Register creates a new user with secure password hashing and the
// default progress fields (streak 0, no badges, 0 total, not admin).
func (s *AuthServiceImpl) Register(ctx context.Context, name, email, password string) (string, error) {
	if name == "" || email == "" || password == "" {
		return "", errors.New("empty name/email/password")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	saltAuth, err := pkgcrypto.RandBytes(pkgcrypto.SaltLen)
	if err != nil {
		return "", err
	}

	u := &model.User{
		ID:       uid,
		Name:     name,
		Email:    email,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
		Badges:   []string{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		// lookup errors are masked so account existence stays hidden
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// LoginFederated trusts an upstream-verified (provider, subject) pair.
// On the first sign-in it materializes a default profile before reading
// it back.
func (s *AuthServiceImpl) LoginFederated(ctx context.Context, provider, subject, email, name string) (model.Tokens, model.User, error) {
	if provider == "" || subject == "" {
		return model.Tokens{}, model.User{}, errors.New("empty provider/subject")
	}
	u, err := s.users.GetByFederated(ctx, provider, subject)
	if errors.Is(err, errs.ErrNotFound) {
		uid, uerr := uuid.NewV4()
		if uerr != nil {
			return model.Tokens{}, model.User{}, uerr
		}
		if name == "" {
			name = email
		}
		nu := &model.User{
			ID:       uid,
			Name:     name,
			Email:    email,
			Badges:   []string{},
			Provider: provider,
			Subject:  subject,
		}
		if cerr := s.users.Create(ctx, nu); cerr != nil {
			return model.Tokens{}, model.User{}, cerr
		}
		u, err = s.users.GetByFederated(ctx, provider, subject)
	}
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}

	tok, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return tok, *u, nil
}

// Profile loads the account by ID.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	return s.users.GetByID(ctx, userID)
}

// ApplyProgress increments the total, advances or resets the streak and
// awards any newly crossed badge thresholds, all behind a row lock.
func (s *AuthServiceImpl) ApplyProgress(ctx context.Context, userID uuid.UUID, completed bool) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	return s.users.ApplyProgress(ctx, userID, completed)
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, ExpiresAt: exp}, nil
}
