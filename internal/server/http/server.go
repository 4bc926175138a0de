// Package httpserver exposes the daybreak HTTP JSON API.
package httpserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/daybreak-dev/daybreak/internal/errs"
	"github.com/daybreak-dev/daybreak/internal/model"
	"github.com/daybreak-dev/daybreak/internal/service"
	"github.com/daybreak-dev/daybreak/internal/window"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth       service.AuthService
	challenges service.ChallengeService
	clock      *window.Clock
	signKey    []byte
	log        *zap.Logger
}

// New constructs a server with injected services.
func New(auth service.AuthService, challenges service.ChallengeService, clock *window.Clock, signKey []byte, log *zap.Logger) *Server {
	return &Server{auth: auth, challenges: challenges, clock: clock, signKey: signKey, log: log}
}

// Routes builds the API mux wrapped with logging and panic recovery.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/login/sso", s.handleLoginSSO)

	mux.Handle("GET /api/me", s.authed(s.handleMe))
	mux.Handle("POST /api/progress", s.authed(s.handleProgress))
	mux.Handle("GET /api/challenge/today", s.authed(s.handleToday))
	mux.Handle("POST /api/challenge/submit", s.authed(s.handleSubmit))
	mux.Handle("GET /api/challenge/submission", s.authed(s.handleOwnSubmission))

	mux.Handle("POST /api/admin/challenges", s.admin(s.handleCreateChallenge))
	mux.Handle("GET /api/admin/challenges", s.admin(s.handleListChallenges))
	mux.Handle("GET /api/admin/challenges/{id}/submissions", s.admin(s.handleListSubmissions))

	return Recover(s.log, Logging(s.log, mux))
}

// --- wire types ---

type userJSON struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	IsAdmin         bool     `json:"is_admin"`
	StreakCount     int      `json:"streak_count"`
	Badges          []string `json:"badges"`
	TotalChallenges int      `json:"total_challenges"`
}

func toUserJSON(u *model.User) userJSON {
	badges := u.Badges
	if badges == nil {
		badges = []string{}
	}
	return userJSON{
		ID:              u.ID.String(),
		Name:            u.Name,
		Email:           u.Email,
		IsAdmin:         u.IsAdmin,
		StreakCount:     u.StreakCount,
		Badges:          badges,
		TotalChallenges: u.TotalChallenges,
	}
}

type challengeJSON struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Question     string `json:"question"`
	SampleAnswer string `json:"sample_answer"`
	Difficulty   string `json:"difficulty"`
	Type         string `json:"type"`
}

func toChallengeJSON(c *model.Challenge) challengeJSON {
	return challengeJSON{
		ID:           c.ID.String(),
		Date:         c.Date,
		Question:     c.Question,
		SampleAnswer: c.SampleAnswer,
		Difficulty:   string(c.Difficulty),
		Type:         string(c.Type),
	}
}

type submissionJSON struct {
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	Answer      string    `json:"answer"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type windowJSON struct {
	Open                   bool   `json:"open"`
	TimeUntilWindowClose   string `json:"time_until_window_close"`
	TimeUntilNextChallenge string `json:"time_until_next_challenge"`
}

func toWindowJSON(st window.Status) windowJSON {
	return windowJSON{
		Open:                   st.Open,
		TimeUntilWindowClose:   st.CloseCountdown,
		TimeUntilNextChallenge: st.OpenCountdown,
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- auth wrappers ---

// authed verifies the bearer JWT and places the user ID in the context.
func (s *Server) authed(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.userIDFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "no auth")
			return
		}
		next(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// admin additionally requires the account's admin flag.
func (s *Server) admin(next http.HandlerFunc) http.Handler {
	return s.authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromCtx(r.Context())
		u, err := s.auth.Profile(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "no auth")
			return
		}
		if !u.IsAdmin {
			writeError(w, http.StatusForbidden, errs.ErrForbidden.Error())
			return
		}
		next(w, r)
	})
}

// userIDFromRequest extracts "Authorization: Bearer <JWT>", verifies
// HS256 and returns the subject as a UUID.
func (s *Server) userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return uuid.Nil, errors.New("no bearer token")
	}
	tok := strings.TrimSpace(h[7:])

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errors.New("token expired or not valid yet")
	}

	return uuid.FromString(claims.Subject)
}

// --- handlers ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "empty name/email/password")
		return
	}
	id, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.log.Error("register", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	tok, u, err := s.auth.LoginWithIP(r.Context(), req.Email, req.Password, remoteIP(r))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "bad credentials")
		case errors.Is(err, errs.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limited")
		default:
			s.log.Error("login", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt,
		"user":         toUserJSON(&u),
	})
}

func (s *Server) handleLoginSSO(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Subject  string `json:"subject"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Provider == "" || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "empty provider/subject")
		return
	}
	tok, u, err := s.auth.LoginFederated(r.Context(), req.Provider, req.Subject, req.Email, req.Name)
	if err != nil {
		s.log.Error("login sso", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt,
		"user":         toUserJSON(&u),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	u, err := s.auth.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.log.Error("me", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	u, err := s.auth.ApplyProgress(r.Context(), id, req.Completed)
	if err != nil {
		s.log.Error("progress", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	ch, submitted, err := s.challenges.Today(r.Context(), id)
	if err != nil {
		s.log.Error("today", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	resp := map[string]any{
		"challenge":           nil,
		"has_submitted_today": submitted,
		"window":              toWindowJSON(s.clock.Status()),
	}
	if ch != nil {
		resp["challenge"] = toChallengeJSON(ch)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	var req struct {
		Answer string `json:"answer"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	u, err := s.challenges.Submit(r.Context(), id, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNoChallenge):
			writeError(w, http.StatusConflict, "no challenge today")
		case errors.Is(err, errs.ErrWindowClosed):
			writeError(w, http.StatusConflict, "challenge window closed")
		case errors.Is(err, errs.ErrAlreadySubmitted):
			writeError(w, http.StatusConflict, "already submitted today")
		default:
			s.log.Error("submit", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": toUserJSON(u)})
}

func (s *Server) handleOwnSubmission(w http.ResponseWriter, r *http.Request) {
	id, _ := UserIDFromCtx(r.Context())
	answer, err := s.challenges.OwnSubmission(r.Context(), id)
	if err != nil {
		s.log.Error("own submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeJSON
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	c := &model.Challenge{
		Date:         req.Date,
		Question:     req.Question,
		SampleAnswer: req.SampleAnswer,
		Difficulty:   model.Difficulty(req.Difficulty),
		Type:         model.ChallengeType(req.Type),
	}
	if err := s.challenges.Create(r.Context(), c); err != nil {
		if strings.HasPrefix(err.Error(), "validation:") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("create challenge", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, http.StatusCreated, toChallengeJSON(c))
}

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	cs, err := s.challenges.List(r.Context())
	if err != nil {
		s.log.Error("list challenges", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	out := make([]challengeJSON, 0, len(cs))
	for i := range cs {
		out = append(out, toChallengeJSON(&cs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	cid, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad id")
		return
	}
	subs, err := s.challenges.Submissions(r.Context(), cid)
	if err != nil {
		s.log.Error("list submissions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	out := make([]submissionJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, submissionJSON{
			ChallengeID: sub.ChallengeID.String(),
			UserID:      sub.UserID.String(),
			Answer:      sub.Answer,
			SubmittedAt: sub.SubmittedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
