package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/mind-engage/mindengage-learner/internal/session"
	"github.com/mind-engage/mindengage-learner/internal/training"
)

// TokenSource supplies the bearer token for each call. An empty token means
// the request goes out unauthenticated; the backend decides.
type TokenSource interface {
	Token() string
}

type Config struct {
	BaseURL string
	Timeout time.Duration

	// Service mode: when all three are set the underlying client fetches its
	// own tokens with the client-credentials grant.
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type Client struct {
	base           string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
}

type Option func(*Client)

// OnUnauthorized registers the hook run on every 401, typically session.Store.Clear.
func OnUnauthorized(fn func()) Option { return func(c *Client) { c.onUnauthorized = fn } }

func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	h := &http.Client{}
	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
		tokens = nil // the oauth2 transport sets Authorization itself
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	c := &Client{base: strings.TrimSuffix(cfg.BaseURL, "/"), http: h, tokens: tokens}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- auth ----

type LoginResult struct {
	Token string
	User  session.Profile
}

// POST /auth/login
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out struct {
		Token       string          `json:"token"`
		AccessToken string          `json:"accessToken"`
		Legacy      string          `json:"access_token"`
		User        session.Profile `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	tok := out.Token
	if tok == "" {
		tok = out.AccessToken
	}
	if tok == "" {
		tok = out.Legacy
	}
	if tok == "" {
		return LoginResult{}, errors.New("login: response carried no token")
	}
	return LoginResult{Token: tok, User: out.User}, nil
}

// ---- trainings ----

// GET /trainings/{id}
func (c *Client) GetTraining(ctx context.Context, trainingID string) (training.Training, error) {
	var t training.Training
	if err := c.do(ctx, http.MethodGet, "/trainings/"+url.PathEscape(trainingID), nil, &t); err != nil {
		return training.Training{}, err
	}
	return t, nil
}

// GET /trainings/{id}/progress/{userId}. The payload is returned raw; field
// names vary between endpoints and are normalized by the progress package.
func (c *Client) GetProgress(ctx context.Context, trainingID, userID string) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, http.MethodGet, progressPath(trainingID, userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type ProgressUpdate struct {
	ContentID string          `json:"contentId,omitempty"`
	Completed *bool           `json:"completed,omitempty"`
	Progress  *int            `json:"progress,omitempty"`
	Status    training.Status `json:"status,omitempty"`
}

// CompletionUpdate is the single update sent when a training becomes complete.
func CompletionUpdate() ProgressUpdate {
	done, pct := true, 100
	return ProgressUpdate{Completed: &done, Progress: &pct, Status: training.StatusCompleted}
}

// PUT /trainings/{id}/progress/{userId}
func (c *Client) UpdateProgress(ctx context.Context, trainingID, userID string, upd ProgressUpdate) (map[string]any, error) {
	out := map[string]any{}
	if err := c.do(ctx, http.MethodPut, progressPath(trainingID, userID), upd, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAck is the server's acknowledgement of a quiz submission. The
// server's own scoring, when present, is informational only.
type SubmitAck struct {
	AttemptID string   `json:"attemptId,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Passed    *bool    `json:"passed,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// POST /trainings/{id}/quizzes/{quizId}/submit
func (c *Client) SubmitQuiz(ctx context.Context, trainingID, quizID string, answers map[string]training.Answer) (SubmitAck, error) {
	if answers == nil {
		answers = map[string]training.Answer{}
	}
	var ack SubmitAck
	path := "/trainings/" + url.PathEscape(trainingID) + "/quizzes/" + url.PathEscape(quizID) + "/submit"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"answers": answers}, &ack); err != nil {
		return SubmitAck{}, err
	}
	return ack, nil
}

// GET /trainings/{id}/quiz-status
func (c *Client) GetQuizStatus(ctx context.Context, trainingID string) (training.QuizStatusReport, error) {
	var r training.QuizStatusReport
	if err := c.do(ctx, http.MethodGet, "/trainings/"+url.PathEscape(trainingID)+"/quiz-status", nil, &r); err != nil {
		return training.QuizStatusReport{}, err
	}
	return r, nil
}

// GET /bootcamps/{id}
func (c *Client) GetBootcamp(ctx context.Context, bootcampID string) (training.Bootcamp, error) {
	var b training.Bootcamp
	if err := c.do(ctx, http.MethodGet, "/bootcamps/"+url.PathEscape(bootcampID), nil, &b); err != nil {
		return training.Bootcamp{}, err
	}
	return b, nil
}

func progressPath(trainingID, userID string) string {
	return "/trainings/" + url.PathEscape(trainingID) + "/progress/" + url.PathEscape(userID)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return &StatusError{Method: method, Path: path, Code: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
