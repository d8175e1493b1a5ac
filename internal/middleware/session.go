package middleware

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
	"go.uber.org/fx"
)

const (
	sessionKey = "session_key"
)

var (
	errSessionNotFound = errors.New("session not found")
)

type SessionManager struct {
	impl     *scs.SessionManager
	lifetime time.Duration
}

type Params struct {
	fx.In

	Config *config.Config
}

func NewSessionManager(p Params) (*SessionManager, error) {
	gob.Register(&model.Session{})

	sm := &SessionManager{
		lifetime: p.Config.Session.Lifetime(),
	}

	sm.impl = scs.New()
	sm.impl.Lifetime = p.Config.Session.Lifetime()
	sm.impl.IdleTimeout = p.Config.Session.IdleTimeout()
	sm.impl.Cookie.HttpOnly = true
	sm.impl.Cookie.SameSite = http.SameSiteLaxMode

	return sm, nil
}

func (s *SessionManager) Wrap(next http.Handler) http.Handler {
	return s.impl.LoadAndSave(next)
}

func (s *SessionManager) Get(ctx context.Context) (*model.Session, error) {
	session, ok := s.impl.Get(ctx, sessionKey).(*model.Session)
	if !ok {
		return nil, errSessionNotFound
	}

	return session, nil
}

// SetAuthenticated establishes an authenticated session for the user.
// The session token is rotated to prevent fixation across the login
// boundary.
func (s *SessionManager) SetAuthenticated(ctx context.Context, user *model.User) error {
	if err := s.impl.RenewToken(ctx); err != nil {
		return err
	}

	session := &model.Session{
		UserID:         user.ID,
		UID:            user.Name,
		AuthValid:      true,
		AuthExpiration: time.Now().Add(s.lifetime),
	}

	s.impl.Put(ctx, sessionKey, session)
	return nil
}

// Destroy tears down the session and its server-side state.
func (s *SessionManager) Destroy(ctx context.Context) error {
	return s.impl.Destroy(ctx)
}

// RequireAuth redirects requests without a valid authenticated session
// to the login page.
func (s *SessionManager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.impl.Get(r.Context(), sessionKey).(*model.Session)
		if !ok || !session.AuthValid || time.Now().After(session.AuthExpiration) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
