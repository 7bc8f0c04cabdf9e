// Package devserver is a local stand-in for the identity and coordination
// services: an HTTP login endpoint that issues JWT session tokens and a
// websocket hub that coordinates rooms in memory. Nothing is persisted.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/internal/token"
	"github.com/parleyhq/parley/models"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the identity API and the coordination hub on one listener.
type Server struct {
	cfg *config.ServerConfig
	log *logger.Logger
	hub *Hub

	mu      sync.Mutex
	userIDs map[string]int64
	nextID  int64
}

// NewServer wires the routes and the hub.
func NewServer(cfg *config.ServerConfig, log *logger.Logger) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		hub:     NewHub(log),
		userIDs: make(map[string]int64),
		nextID:  1,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/api/auth/login", s.handleLogin)
	r.Get("/ws", s.handleWS)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.HTTPAddress,
		Handler:     s.Router(),
		ReadTimeout: s.cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.cfg.HTTPAddress).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("server stopped")

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger attaches a request-scoped child logger to the context so
// handlers can use logger.FromRequest, and logs the request on completion.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.GetChildLogger()
		r = r.WithContext(reqLog.WithContext(r.Context()))

		next.ServeHTTP(w, r)

		reqLog.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// handleLogin verifies the posted credentials and answers with a bearer
// session token in the Authorization header.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Login == "" {
		http.Error(w, "login required", http.StatusBadRequest)
		return
	}

	if !s.credentialsOK(req) {
		log.Warn().Str("login", req.Login).Msg("login rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	auth := s.cfg.Auth
	tok, err := token.Generate(auth.TokenIssuer, s.userIDFor(req.Login), auth.TokenDuration, auth.TokenSignKey)
	if err != nil {
		log.Error().Err(err).Msg("token generation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Authorization", "Bearer "+tok.SignedString)
	w.WriteHeader(http.StatusOK)
	log.Info().Str("login", req.Login).Int64("user_id", tok.UserID).Msg("login ok")
}

// credentialsOK checks the account table. An empty configured hash accepts
// any credentials, which keeps local development friction-free.
func (s *Server) credentialsOK(req models.LoginRequest) bool {
	auth := s.cfg.Auth
	if auth.AccountSecretHash == "" {
		return true
	}
	if req.Login != auth.AccountLogin {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(auth.AccountSecretHash), []byte(req.Secret)) == nil
}

// userIDFor assigns stable in-process user ids per login name.
func (s *Server) userIDFor(login string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.userIDs[login]; ok {
		return id
	}
	id := s.nextID
	s.nextID++
	s.userIDs[login] = id
	return id
}

// handleWS validates the session token and hands the connection to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := token.ParseBearer(r.Header.Get("Authorization"))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tok, err := token.ValidateAndParse(raw, s.cfg.Auth.TokenSignKey, s.cfg.Auth.TokenIssuer)
	if err != nil {
		logger.FromRequest(r).Warn().Err(err).Msg("token rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.hub.Serve(w, r, tok.UserID)
}
