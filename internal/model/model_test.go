package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyProgress_CompletedAdvancesStreak(t *testing.T) {
	t.Parallel()

	u := &User{StreakCount: 2, TotalChallenges: 10, Badges: []string{}}
	u.ApplyProgress(true)
	assert.Equal(t, 3, u.StreakCount)
	assert.Equal(t, 11, u.TotalChallenges)
	assert.Empty(t, u.Badges)
}

func TestApplyProgress_MissResetsStreak(t *testing.T) {
	t.Parallel()

	u := &User{StreakCount: 6, TotalChallenges: 6, Badges: []string{}}
	u.ApplyProgress(false)
	assert.Equal(t, 0, u.StreakCount)
	assert.Equal(t, 7, u.TotalChallenges)
	assert.Empty(t, u.Badges, "no badge on a miss")
}

func TestApplyProgress_WeekWarriorAwardedOnce(t *testing.T) {
	t.Parallel()

	u := &User{StreakCount: 6, Badges: []string{}}
	u.ApplyProgress(true)
	assert.Equal(t, 7, u.StreakCount)
	assert.Equal(t, []string{BadgeWeekWarrior}, u.Badges)

	// next consecutive day must not duplicate the badge
	u.ApplyProgress(true)
	assert.Equal(t, 8, u.StreakCount)
	assert.Equal(t, []string{BadgeWeekWarrior}, u.Badges)
}

func TestApplyProgress_AwardCatchesUpPastThreshold(t *testing.T) {
	t.Parallel()

	// a profile that somehow crossed 7 without the award still gets
	// the badge on the next update
	u := &User{StreakCount: 9, Badges: []string{}}
	u.ApplyProgress(true)
	assert.Equal(t, 10, u.StreakCount)
	assert.Contains(t, u.Badges, BadgeWeekWarrior)
}

func TestApplyProgress_MonthMaster(t *testing.T) {
	t.Parallel()

	u := &User{StreakCount: 29, Badges: []string{BadgeWeekWarrior}}
	u.ApplyProgress(true)
	assert.Equal(t, 30, u.StreakCount)
	assert.Equal(t, []string{BadgeWeekWarrior, BadgeMonthMaster}, u.Badges)
}

func TestHasBadge(t *testing.T) {
	t.Parallel()

	u := &User{Badges: []string{BadgeWeekWarrior}}
	assert.True(t, u.HasBadge(BadgeWeekWarrior))
	assert.False(t, u.HasBadge(BadgeMonthMaster))
}
