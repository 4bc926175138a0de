// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Difficulty grades a challenge.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ChallengeType distinguishes coding exercises from conceptual questions.
type ChallengeType string

const (
	TypeCoding     ChallengeType = "coding"
	TypeConceptual ChallengeType = "conceptual"
)

// Badge labels. A badge is appended once the streak first reaches its
// threshold and is never removed.
const (
	BadgeWeekWarrior = "Week Warrior"
	BadgeMonthMaster = "Month Master"
)

// Streak thresholds for badge awards.
const (
	weekStreak  = 7
	monthStreak = 30
)

// DateLayout is the calendar-day format used for challenge dates.
const DateLayout = "2006-01-02"

// Tokens collects an issued access token and its expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // for diagnostics and client-side refresh
}

// User is an account with its challenge progress fields.
type User struct {
	ID              uuid.UUID // PK
	Name            string
	Email           string // unique
	PwdHash         []byte // Argon2id(password, SaltAuth); empty for federated accounts
	SaltAuth        []byte // per-user auth salt
	IsAdmin         bool
	StreakCount     int      // consecutive completed days (>= 0)
	TotalChallenges int      // lifetime submissions (>= 0)
	Badges          []string // ordered, unique labels
	Provider        string   // federated provider name; "" for password accounts
	Subject         string   // provider-scoped subject id
	CreatedAt       time.Time
}

// HasBadge reports whether the user already holds the given badge.
func (u *User) HasBadge(label string) bool {
	for _, b := range u.Badges {
		if b == label {
			return true
		}
	}
	return false
}

// ApplyProgress mutates the progress fields for one submission. Total
// always increments; the streak increments on a completed submission
// and resets to zero otherwise. Badges are first-crossing: appended
// once the new streak has reached the threshold and the badge is not
// yet held.
func (u *User) ApplyProgress(completed bool) {
	u.TotalChallenges++
	if completed {
		u.StreakCount++
	} else {
		u.StreakCount = 0
	}
	if u.StreakCount >= weekStreak && !u.HasBadge(BadgeWeekWarrior) {
		u.Badges = append(u.Badges, BadgeWeekWarrior)
	}
	if u.StreakCount >= monthStreak && !u.HasBadge(BadgeMonthMaster) {
		u.Badges = append(u.Badges, BadgeMonthMaster)
	}
}

// Challenge is one day's question. Immutable after creation. Dates are
// not unique in the store; readers take the earliest created match.
type Challenge struct {
	ID           uuid.UUID
	Date         string // YYYY-MM-DD
	Question     string
	SampleAnswer string
	Difficulty   Difficulty
	Type         ChallengeType
	CreatedAt    time.Time
}

// Submission is a single answer to a challenge. At most one exists per
// (challenge, user, calendar day), enforced by a unique index.
type Submission struct {
	ID          uuid.UUID
	ChallengeID uuid.UUID
	UserID      uuid.UUID
	Answer      string
	SubmittedAt time.Time
	SubmittedOn string // calendar day of SubmittedAt, YYYY-MM-DD
}
