package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	csrfKey   = "csrf_token"
	csrfField = "csrf_token"
)

// CSRFToken returns the token bound to the session, generating and
// storing one on first use.
func (s *SessionManager) CSRFToken(ctx context.Context) (string, error) {
	if token, ok := s.impl.Get(ctx, csrfKey).(string); ok && token != "" {
		return token, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	token := hex.EncodeToString(buf)
	s.impl.Put(ctx, csrfKey, token)
	return token, nil
}

func (s *SessionManager) verifyCSRF(ctx context.Context, token string) bool {
	expected, ok := s.impl.Get(ctx, csrfKey).(string)
	if !ok || expected == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// VerifyCSRF rejects state-changing requests whose csrf_token form field
// does not match the token bound to the session. Must run inside Wrap.
func (s *SessionManager) VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if !s.verifyCSRF(r.Context(), r.PostFormValue(csrfField)) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
