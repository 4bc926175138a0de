package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/daybreak-dev/daybreak/internal/window"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testKey = []byte("test-sign-key")

/************ fakes ************/

type fakeAuth struct {
	registerID  string
	registerErr error

	loginTok  model.Tokens
	loginUser model.User
	loginErr  error

	profile    *model.User
	profileErr error

	progressUser *model.User
	progressErr  error
}

func (f *fakeAuth) Register(_ context.Context, _, _, _ string) (string, error) {
	return f.registerID, f.registerErr
}

func (f *fakeAuth) LoginWithIP(_ context.Context, _, _, _ string) (model.Tokens, model.User, error) {
	return f.loginTok, f.loginUser, f.loginErr
}

func (f *fakeAuth) LoginFederated(_ context.Context, _, _, _, _ string) (model.Tokens, model.User, error) {
	return f.loginTok, f.loginUser, f.loginErr
}

func (f *fakeAuth) Profile(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return f.profile, f.profileErr
}

func (f *fakeAuth) ApplyProgress(_ context.Context, _ uuid.UUID, _ bool) (*model.User, error) {
	return f.progressUser, f.progressErr
}

type fakeChallenges struct {
	today          *model.Challenge
	todaySubmitted bool
	todayErr       error

	submitUser *model.User
	submitErr  error

	createErr error

	list    []model.Challenge
	listErr error

	subs    []model.Submission
	subsErr error

	ownAnswer string
	ownErr    error
}

func (f *fakeChallenges) Today(_ context.Context, _ uuid.UUID) (*model.Challenge, bool, error) {
	return f.today, f.todaySubmitted, f.todayErr
}

func (f *fakeChallenges) Submit(_ context.Context, _ uuid.UUID, _ string) (*model.User, error) {
	return f.submitUser, f.submitErr
}

func (f *fakeChallenges) Create(_ context.Context, c *model.Challenge) error {
	if f.createErr != nil {
		return f.createErr
	}
	c.ID = uuid.Must(uuid.NewV4())
	return nil
}

func (f *fakeChallenges) List(_ context.Context) ([]model.Challenge, error) {
	return f.list, f.listErr
}

func (f *fakeChallenges) Submissions(_ context.Context, _ uuid.UUID) ([]model.Submission, error) {
	return f.subs, f.subsErr
}

func (f *fakeChallenges) OwnSubmission(_ context.Context, _ uuid.UUID) (string, error) {
	return f.ownAnswer, f.ownErr
}

/************ helpers ************/

var openNow = time.Date(2025, 3, 10, 6, 0, 0, 0, time.Local)

func newTestServer(t *testing.T, auth *fakeAuth, ch *fakeChallenges) *httptest.Server {
	t.Helper()
	clock := window.NewClock(func() time.Time { return openNow })
	srv := New(auth, ch, clock, testKey, zap.NewNop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func bearerFor(t *testing.T, userID uuid.UUID, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func testUser(admin bool) *model.User {
	return &model.User{
		ID:      uuid.Must(uuid.NewV4()),
		Name:    "someone",
		Email:   "a@example.com",
		IsAdmin: admin,
		Badges:  []string{},
	}
}

/************ tests ************/

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeAuth{}, &fakeChallenges{})
	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", string(raw))
}

func TestRegister(t *testing.T) {
	auth := &fakeAuth{registerID: "uid-1"}
	ts := newTestServer(t, auth, &fakeChallenges{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/register", "",
		map[string]string{"name": "someone", "email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "uid-1", out["user_id"])

	// empty fields
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/register", "",
		map[string]string{"name": "", "email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// duplicate email
	auth.registerErr = errs.ErrAlreadyExists
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/register", "",
		map[string]string{"name": "someone", "email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_StatusMapping(t *testing.T) {
	u := testUser(false)
	auth := &fakeAuth{
		loginTok:  model.Tokens{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
		loginUser: *u,
	}
	ts := newTestServer(t, auth, &fakeChallenges{})
	creds := map[string]string{"email": u.Email, "password": "pw"}

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		AccessToken string   `json:"access_token"`
		User        userJSON `json:"user"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "tok", out.AccessToken)
	require.Equal(t, u.Email, out.User.Email)

	auth.loginErr = errs.ErrUnauthorized
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", creds)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	auth.loginErr = errs.ErrRateLimited
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestLoginSSO(t *testing.T) {
	u := testUser(false)
	auth := &fakeAuth{
		loginTok:  model.Tokens{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)},
		loginUser: *u,
	}
	ts := newTestServer(t, auth, &fakeChallenges{})

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/login/sso", "",
		map[string]string{"provider": "google", "subject": "sub-1", "email": u.Email, "name": u.Name})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/login/sso", "",
		map[string]string{"provider": "", "subject": "sub-1"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthed_RejectsBadTokens(t *testing.T) {
	u := testUser(false)
	ts := newTestServer(t, &fakeAuth{profile: u}, &fakeChallenges{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/me", "Bearer not.a.jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// expired beyond leeway
	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/me", bearerFor(t, u.ID, -2*time.Minute), nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMe(t *testing.T) {
	u := testUser(false)
	u.StreakCount = 4
	u.TotalChallenges = 12
	ts := newTestServer(t, &fakeAuth{profile: u}, &fakeChallenges{})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/me", bearerFor(t, u.ID, time.Hour), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out userJSON
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, u.ID.String(), out.ID)
	require.Equal(t, 4, out.StreakCount)
	require.Equal(t, 12, out.TotalChallenges)
	require.NotNil(t, out.Badges)
}

func TestProgress(t *testing.T) {
	u := testUser(false)
	u.StreakCount = 7
	u.TotalChallenges = 7
	u.Badges = []string{model.BadgeWeekWarrior}
	ts := newTestServer(t, &fakeAuth{progressUser: u}, &fakeChallenges{})

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/progress", bearerFor(t, u.ID, time.Hour),
		map[string]bool{"completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out userJSON
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, []string{model.BadgeWeekWarrior}, out.Badges)
}

func TestToday(t *testing.T) {
	u := testUser(false)
	ch := &model.Challenge{
		ID:         uuid.Must(uuid.NewV4()),
		Date:       "2025-03-10",
		Question:   "q",
		Difficulty: model.DifficultyEasy,
		Type:       model.TypeConceptual,
	}
	chs := &fakeChallenges{today: ch, todaySubmitted: true}
	ts := newTestServer(t, &fakeAuth{profile: u}, chs)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/challenge/today", bearerFor(t, u.ID, time.Hour), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Challenge         *challengeJSON `json:"challenge"`
		HasSubmittedToday bool           `json:"has_submitted_today"`
		Window            windowJSON     `json:"window"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotNil(t, out.Challenge)
	require.Equal(t, "q", out.Challenge.Question)
	require.True(t, out.HasSubmittedToday)
	require.True(t, out.Window.Open)
	require.Equal(t, "1h 0m 0s", out.Window.TimeUntilWindowClose)

	// no challenge published
	chs.today = nil
	chs.todaySubmitted = false
	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/challenge/today", bearerFor(t, u.ID, time.Hour), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Nil(t, out.Challenge)
	require.False(t, out.HasSubmittedToday)
}

func TestSubmit_StatusMapping(t *testing.T) {
	u := testUser(false)
	u.StreakCount = 1
	u.TotalChallenges = 1
	chs := &fakeChallenges{submitUser: u}
	ts := newTestServer(t, &fakeAuth{}, chs)
	bearer := bearerFor(t, u.ID, time.Hour)
	body := map[string]string{"answer": "42"}

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/challenge/submit", bearer, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		User userJSON `json:"user"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, 1, out.User.StreakCount)

	for _, e := range []error{errs.ErrNoChallenge, errs.ErrWindowClosed, errs.ErrAlreadySubmitted} {
		chs.submitErr = e
		resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/challenge/submit", bearer, body)
		require.Equal(t, http.StatusConflict, resp.StatusCode, "error %v", e)
	}

	chs.submitErr = errors.New("db down")
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/challenge/submit", bearer, body)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestOwnSubmission(t *testing.T) {
	u := testUser(false)
	ts := newTestServer(t, &fakeAuth{}, &fakeChallenges{ownAnswer: "mine"})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/challenge/submission", bearerFor(t, u.ID, time.Hour), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "mine", out["answer"])
}

func TestAdmin_ForbiddenForNonAdmin(t *testing.T) {
	u := testUser(false)
	ts := newTestServer(t, &fakeAuth{profile: u}, &fakeChallenges{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/admin/challenges", bearerFor(t, u.ID, time.Hour), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdmin_CreateChallenge(t *testing.T) {
	u := testUser(true)
	chs := &fakeChallenges{}
	ts := newTestServer(t, &fakeAuth{profile: u}, chs)
	bearer := bearerFor(t, u.ID, time.Hour)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/admin/challenges", bearer, challengeJSON{
		Date:       "2025-03-11",
		Question:   "new q",
		Difficulty: "Easy",
		Type:       "coding",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out challengeJSON
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotEmpty(t, out.ID)

	chs.createErr = errors.New("validation: empty question")
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/admin/challenges", bearer, challengeJSON{Date: "2025-03-11"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_ListSubmissions(t *testing.T) {
	u := testUser(true)
	cid := uuid.Must(uuid.NewV4())
	chs := &fakeChallenges{subs: []model.Submission{
		{ID: uuid.Must(uuid.NewV4()), ChallengeID: cid, UserID: uuid.Must(uuid.NewV4()), Answer: "a1", SubmittedAt: time.Now()},
	}}
	ts := newTestServer(t, &fakeAuth{profile: u}, chs)
	bearer := bearerFor(t, u.ID, time.Hour)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/admin/challenges/"+cid.String()+"/submissions", bearer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []submissionJSON
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 1)
	require.Equal(t, "a1", out[0].Answer)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/admin/challenges/not-a-uuid/submissions", bearer, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
