// Command daybreak is a CLI client for the daybreak challenge service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// profileFile is the serialized last-known profile. It is restored
// optimistically before the authoritative /api/me round-trip,
// overwritten on every authoritative fetch and removed on logout.
type profileFile struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	IsAdmin         bool     `json:"is_admin"`
	StreakCount     int      `json:"streak_count"`
	Badges          []string `json:"badges"`
	TotalChallenges int      `json:"total_challenges"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "daybreak")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "daybreak")
}

func tokenPath() string   { return filepath.Join(cfgDir(), "token.json") }
func profilePath() string { return filepath.Join(cfgDir(), "profile.json") }

func saveToken(tok string, exp time.Time) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	f, err := os.Create(tokenPath())
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

func saveProfile(p *profileFile) error {
	_ = os.MkdirAll(cfgDir(), 0o700)
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(profilePath(), b, 0o600)
}

func loadProfile() (*profileFile, error) {
	b, err := os.ReadFile(profilePath())
	if err != nil {
		return nil, err
	}
	var p profileFile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// clearSession removes the token and cached profile. Idempotent.
func clearSession() {
	_ = os.Remove(tokenPath())
	_ = os.Remove(profilePath())
}

// ---- http client ----

type client struct {
	base   string
	bearer string
	hc     *http.Client
}

func newClient(base, bearer string) *client {
	return &client{base: strings.TrimRight(base, "/"), bearer: bearer, hc: &http.Client{Timeout: 30 * time.Second}}
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return fmt.Sprintf("%d: %s", e.Status, e.Message) }

// do issues a JSON request and decodes the JSON response into out.
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ---- wire types mirrored from the server ----

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        profileFile `json:"user"`
}

type challengeView struct {
	ID           string `json:"id"`
	Date         string `json:"date"`
	Question     string `json:"question"`
	SampleAnswer string `json:"sample_answer"`
	Difficulty   string `json:"difficulty"`
	Type         string `json:"type"`
}

type todayResponse struct {
	Challenge         *challengeView `json:"challenge"`
	HasSubmittedToday bool           `json:"has_submitted_today"`
	Window            struct {
		Open                   bool   `json:"open"`
		TimeUntilWindowClose   string `json:"time_until_window_close"`
		TimeUntilNextChallenge string `json:"time_until_next_challenge"`
	} `json:"window"`
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func readAnswer(p string) (string, error) {
	if p == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	return p, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `daybreak CLI
Usage:
  daybreak -server URL <cmd> [args]

Commands:
  version
  register     -name <name> -email <email> -password <pw>
  login        -email <email> -password <pw>          (saves token + profile)
  sso          -provider <p> -subject <s> [-email <e>] [-name <n>]
  logout
  whoami                                    (cached profile, then refresh)
  today                                     (challenge, window, countdowns)
  submit       -answer <text|->
  answer                                    (own submission for today)
  progress     -completed <true|false>
  challenges                                (admin)
  submissions  -challenge <uuid>            (admin)
  add          -date YYYY-MM-DD -question <q> [-sample <a>] -difficulty <d> -type <t>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against the HTTP API.
func main() {
	server := flag.String("server", envDefault("DAYBREAK_SERVER", "http://localhost:8080"), "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cmd {

	case "version":
		fmt.Printf("daybreak %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email")
		pw := fs.String("password", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *name == "" || *email == "" || *pw == "" {
			fmt.Fprintln(os.Stderr, "need -name, -email and -password")
			os.Exit(1)
		}
		var out struct {
			UserID string `json:"user_id"`
		}
		err := newClient(*server, "").do(ctx, http.MethodPost, "/api/register",
			map[string]string{"name": *name, "email": *email, "password": *pw}, &out)
		if err != nil {
			fail(err)
		}
		fmt.Println(out.UserID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "email")
		pw := fs.String("password", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *email == "" || *pw == "" {
			fmt.Fprintln(os.Stderr, "need -email and -password")
			os.Exit(1)
		}
		var out loginResponse
		err := newClient(*server, "").do(ctx, http.MethodPost, "/api/login",
			map[string]string{"email": *email, "password": *pw}, &out)
		if err != nil {
			// a failed sign-in clears any stale cached identity
			clearSession()
			fail(err)
		}
		if err := saveToken(out.AccessToken, out.ExpiresAt); err != nil {
			fail(err)
		}
		if err := saveProfile(&out.User); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "sso":
		fs := flag.NewFlagSet("sso", flag.ExitOnError)
		provider := fs.String("provider", "", "identity provider")
		subject := fs.String("subject", "", "provider subject id")
		email := fs.String("email", "", "email")
		name := fs.String("name", "", "display name")
		_ = fs.Parse(flag.Args()[1:])
		if *provider == "" || *subject == "" {
			fmt.Fprintln(os.Stderr, "need -provider and -subject")
			os.Exit(1)
		}
		var out loginResponse
		err := newClient(*server, "").do(ctx, http.MethodPost, "/api/login/sso",
			map[string]string{"provider": *provider, "subject": *subject, "email": *email, "name": *name}, &out)
		if err != nil {
			clearSession()
			fail(err)
		}
		if err := saveToken(out.AccessToken, out.ExpiresAt); err != nil {
			fail(err)
		}
		if err := saveProfile(&out.User); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		clearSession()
		fmt.Println("ok")

	case "whoami":
		// optimistic read of the snapshot, then authoritative refresh
		if cached, err := loadProfile(); err == nil {
			fmt.Println("cached:")
			printJSON(cached)
		}
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var p profileFile
		if err := newClient(*server, token).do(ctx, http.MethodGet, "/api/me", nil, &p); err != nil {
			var ae *apiError
			if errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
				clearSession()
			}
			fail(err)
		}
		_ = saveProfile(&p)
		fmt.Println("server:")
		printJSON(&p)

	case "today":
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out todayResponse
		if err := newClient(*server, token).do(ctx, http.MethodGet, "/api/challenge/today", nil, &out); err != nil {
			fail(err)
		}
		printToday(&out)

	case "submit":
		fs := flag.NewFlagSet("submit", flag.ExitOnError)
		answer := fs.String("answer", "-", "answer text, or - for stdin")
		_ = fs.Parse(flag.Args()[1:])
		text, err := readAnswer(*answer)
		if err != nil {
			fail(err)
		}
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out struct {
			User profileFile `json:"user"`
		}
		if err := newClient(*server, token).do(ctx, http.MethodPost, "/api/challenge/submit",
			map[string]string{"answer": text}, &out); err != nil {
			fail(err)
		}
		_ = saveProfile(&out.User)
		printJSON(&out.User)

	case "answer":
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out struct {
			Answer string `json:"answer"`
		}
		if err := newClient(*server, token).do(ctx, http.MethodGet, "/api/challenge/submission", nil, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Answer)

	case "progress":
		fs := flag.NewFlagSet("progress", flag.ExitOnError)
		completed := fs.Bool("completed", true, "qualifying completion")
		_ = fs.Parse(flag.Args()[1:])
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var p profileFile
		if err := newClient(*server, token).do(ctx, http.MethodPost, "/api/progress",
			map[string]bool{"completed": *completed}, &p); err != nil {
			fail(err)
		}
		_ = saveProfile(&p)
		printJSON(&p)

	case "challenges":
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out []challengeView
		if err := newClient(*server, token).do(ctx, http.MethodGet, "/api/admin/challenges", nil, &out); err != nil {
			// read failures degrade to an empty listing
			fmt.Fprintln(os.Stderr, "warning:", err)
			out = []challengeView{}
		}
		printJSON(out)

	case "submissions":
		fs := flag.NewFlagSet("submissions", flag.ExitOnError)
		challengeID := fs.String("challenge", "", "challenge id (uuid)")
		_ = fs.Parse(flag.Args()[1:])
		if *challengeID == "" {
			fmt.Fprintln(os.Stderr, "need -challenge")
			os.Exit(1)
		}
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out []map[string]any
		if err := newClient(*server, token).do(ctx, http.MethodGet,
			"/api/admin/challenges/"+*challengeID+"/submissions", nil, &out); err != nil {
			fmt.Fprintln(os.Stderr, "warning:", err)
			out = []map[string]any{}
		}
		printJSON(out)

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		date := fs.String("date", "", "challenge date YYYY-MM-DD")
		question := fs.String("question", "", "question text")
		sample := fs.String("sample", "", "sample answer")
		difficulty := fs.String("difficulty", "Easy", "Easy|Medium|Hard")
		typ := fs.String("type", "conceptual", "coding|conceptual")
		_ = fs.Parse(flag.Args()[1:])
		if *date == "" || *question == "" {
			fmt.Fprintln(os.Stderr, "need -date and -question")
			os.Exit(1)
		}
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		var out challengeView
		if err := newClient(*server, token).do(ctx, http.MethodPost, "/api/admin/challenges",
			map[string]string{
				"date": *date, "question": *question, "sample_answer": *sample,
				"difficulty": *difficulty, "type": *typ,
			}, &out); err != nil {
			fail(err)
		}
		printJSON(&out)

	default:
		usage()
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// printToday renders the challenge state the way the morning page did:
// question plus whichever countdown applies.
func printToday(t *todayResponse) {
	if t.Window.Open {
		fmt.Println("window: OPEN, closes in", t.Window.TimeUntilWindowClose)
	} else {
		fmt.Println("window: closed, next challenge in", t.Window.TimeUntilNextChallenge)
	}
	if t.Challenge == nil {
		fmt.Println("no challenge today")
		return
	}
	fmt.Printf("[%s] %s (%s)\n", t.Challenge.Date, t.Challenge.Difficulty, t.Challenge.Type)
	fmt.Println(t.Challenge.Question)
	if t.HasSubmittedToday {
		fmt.Println("already submitted today")
	}
}
