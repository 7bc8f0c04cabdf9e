// Package identity implements the client side of the identity service
// login handshake.
//
// The session is advanced by the orchestrator once per tick and never
// blocks: the login HTTP request runs on its own goroutine and delivers
// its result over a channel that Advance drains. Observers poll the coarse
// State; once it reaches StateLoggedIn the issued session token is
// available for constructing the coordination session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/internal/token"
	"github.com/parleyhq/parley/models"
)

// State is the coarse, observable login state.
type State int

const (
	// StateIdle means no login attempt is in flight yet.
	StateIdle State = iota
	// StateLoggingIn means a login request is in flight.
	StateLoggingIn
	// StateLoggedIn means a session token has been issued.
	StateLoggedIn
)

// String returns a human-readable state label for the "state" command.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoggingIn:
		return "logging in"
	case StateLoggedIn:
		return "logged in"
	default:
		return "unknown"
	}
}

// retryDelay spaces out login attempts after a failure.
const retryDelay = 3 * time.Second

// ErrUnauthorized is returned when the identity service rejects the
// configured credentials.
var ErrUnauthorized = errors.New("identity: unauthorized")

type loginResult struct {
	token  string
	userID int64
	err    error
}

// Session performs the login handshake against the identity service.
// All exported methods must be called from the orchestrator goroutine.
type Session struct {
	cfg config.ClientIdentity
	log *logger.Logger

	// loginFn performs one login attempt. Replaced in tests.
	loginFn func(ctx context.Context) (string, int64, error)

	state       State
	sessionTok  string
	userID      int64
	lastErr     error
	results     chan loginResult
	nextAttempt time.Time
}

// NewSession builds a session from client configuration. No network traffic
// happens until the first Advance call.
func NewSession(cfg config.ClientIdentity, log *logger.Logger) *Session {
	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Address, "/")).
		SetTimeout(cfg.RequestTimeout)

	s := &Session{
		cfg:     cfg,
		log:     log,
		results: make(chan loginResult, 1),
	}
	s.loginFn = func(ctx context.Context) (string, int64, error) {
		return login(ctx, cli, cfg)
	}
	return s
}

// Advance drives the login state machine. It starts a login attempt when
// idle, collects a finished attempt when one is in flight, and schedules a
// retry after a failure. It never blocks.
func (s *Session) Advance(now time.Time) {
	switch s.state {
	case StateIdle:
		if now.Before(s.nextAttempt) {
			return
		}
		s.state = StateLoggingIn
		go s.attempt()

	case StateLoggingIn:
		select {
		case res := <-s.results:
			if res.err != nil {
				s.lastErr = res.err
				s.state = StateIdle
				s.nextAttempt = now.Add(retryDelay)
				s.log.Warn().Err(res.err).Msg("login attempt failed")
				return
			}
			s.sessionTok = res.token
			s.userID = res.userID
			s.lastErr = nil
			s.state = StateLoggedIn
			s.log.Info().Int64("user_id", res.userID).Msg("logged in")
		default:
		}

	case StateLoggedIn:
		// Nothing to drive; token refresh is not this layer's concern.
	}
}

func (s *Session) attempt() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	tok, userID, err := s.loginFn(ctx)
	s.results <- loginResult{token: tok, userID: userID, err: err}
}

// State returns the coarse login state.
func (s *Session) State() State {
	return s.state
}

// SessionToken returns the issued session token, or "" before login
// completes.
func (s *Session) SessionToken() string {
	return s.sessionTok
}

// UserID returns the authenticated user id, or 0 before login completes.
func (s *Session) UserID() int64 {
	return s.userID
}

// Err returns the most recent login failure, cleared on success.
func (s *Session) Err() error {
	return s.lastErr
}

// login performs one login HTTP request and extracts the bearer token from
// the Authorization response header.
func login(ctx context.Context, cli *resty.Client, cfg config.ClientIdentity) (string, int64, error) {
	resp, err := cli.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Login: cfg.Login, Secret: cfg.Secret}).
		Post("/api/auth/login")
	if err != nil {
		return "", 0, fmt.Errorf("login request: %w", err)
	}
	if resp.StatusCode() == 401 {
		return "", 0, ErrUnauthorized
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		body := strings.TrimSpace(string(resp.Body()))
		return "", 0, fmt.Errorf("login http %d: %s", resp.StatusCode(), body)
	}

	tok, err := token.ParseBearer(resp.Header().Get("Authorization"))
	if err != nil {
		return "", 0, fmt.Errorf("login parse bearer token: %w", err)
	}
	userID, err := token.UserIDFromUnverified(tok)
	if err != nil {
		return "", 0, fmt.Errorf("login parse user id: %w", err)
	}

	return tok, userID, nil
}
