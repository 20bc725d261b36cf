package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("access token is invalid")
	ErrTokenExpired = errors.New("access token is expired")
)

type SessionOption func(*Session)

// WithSecret enables HMAC signature verification of access tokens.
func WithSecret(secret string) SessionOption {
	return func(s *Session) {
		s.secret = []byte(secret)
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session holds the operator's access token and drives the Signal from it.
type Session struct {
	signal *Signal
	secret []byte
	now    func() time.Time

	mu        sync.RWMutex
	token     string
	subject   string
	expiresAt time.Time
}

func NewSession(signal *Signal, opts ...SessionOption) *Session {
	s := &Session{
		signal: signal,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates token and, on success, marks the session authenticated.
// A failed login leaves the session logged out.
func (s *Session) Login(token string) error {
	s.signal.Set(State{Authenticated: s.State().Authenticated, Loading: true})

	claims, err := s.parse(strings.TrimSpace(token))
	if err != nil {
		s.clear()
		s.signal.Set(State{})
		return err
	}

	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.subject = claims.Subject
	s.expiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	s.mu.Unlock()

	s.signal.Set(State{Authenticated: true})
	slog.Info("Session authenticated", "subject", claims.Subject, "expires_at", s.ExpiresAt())
	return nil
}

func (s *Session) Logout() {
	s.clear()
	s.signal.Set(State{})
	slog.Info("Session ended")
}

func (s *Session) State() State {
	return s.signal.State()
}

// Token returns the current access token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Subject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subject
}

// ExpiresAt is zero for tokens without an exp claim.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Watch logs the session out once its token expires. It checks every
// interval until ctx is done.
func (s *Session) Watch(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.expired() {
				slog.Warn("Access token expired, ending session")
				s.Logout()
			}
		}
	}
}

func (s *Session) expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && !s.expiresAt.IsZero() && !s.expiresAt.After(s.now())
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.subject = ""
	s.expiresAt = time.Time{}
}

func (s *Session) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	var err error
	if len(s.secret) > 0 {
		_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		},
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithoutClaimsValidation(),
		)
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(s.now()) {
		return nil, ErrTokenExpired
	}
	if claims.NotBefore != nil && s.now().Before(claims.NotBefore.Time) {
		return nil, fmt.Errorf("%w: token not active yet", ErrInvalidToken)
	}

	return claims, nil
}
