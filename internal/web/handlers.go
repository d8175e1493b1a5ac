package web

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ghaggin/webauth/internal/auth"
	"github.com/ghaggin/webauth/internal/middleware"
	"github.com/ghaggin/webauth/internal/repository"
	"github.com/ghaggin/webauth/internal/template"
	"go.uber.org/zap"
)

type handlers struct {
	log      *zap.Logger
	auth     *auth.Controller
	sessions *middleware.SessionManager
	render   *template.Renderer
}

func (h *handlers) home(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// the account may have gone away since the session was issued
	user, err := h.auth.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = h.sessions.Destroy(r.Context())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.serverError(w, err)
		return
	}

	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.renderPage(w, r, "home.html", &template.Data{
		PageTitle: "home",
		UID:       user.Name,
		CSRFToken: token,
	})
}

func (h *handlers) users(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	users, err := h.auth.GetUsers(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.renderPage(w, r, "users.html", &template.Data{
		PageTitle: "users",
		UID:       session.UID,
		CSRFToken: token,
		Users:     users,
	})
}

func (h *handlers) loginForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "login.html", "login", "")
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.auth.ValidateLogin(r.Context(), clientAddr(r), username, password)
	if err != nil {
		var locked *auth.LockedOutError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.renderForm(w, r, "login.html", "login", "Invalid username or password.")
		case errors.As(err, &locked):
			w.Header().Set("Retry-After", strconv.FormatInt(int64(locked.RetryAfter.Seconds()), 10))
			h.renderForm(w, r, "login.html", "login", "Too many failed attempts. Try again later.")
		default:
			h.serverError(w, err)
		}
		return
	}

	if err := h.sessions.SetAuthenticated(r.Context(), user); err != nil {
		h.serverError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		h.serverError(w, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handlers) registerForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "register.html", "register", "")
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	_, err := h.auth.RegisterUser(
		r.Context(),
		r.PostFormValue("username"),
		r.PostFormValue("email"),
		r.PostFormValue("password"),
		r.PostFormValue("confirm_password"),
	)
	if err != nil {
		var invalid *auth.ValidationError
		if errors.As(err, &invalid) {
			h.renderForm(w, r, "register.html", "register", invalid.Msg)
			return
		}
		h.serverError(w, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handlers) renderForm(w http.ResponseWriter, r *http.Request, tmpl, title, errMsg string) {
	token, err := h.sessions.CSRFToken(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.renderPage(w, r, tmpl, &template.Data{
		PageTitle: title,
		Error:     errMsg,
		CSRFToken: token,
	})
}

func (h *handlers) renderPage(w http.ResponseWriter, r *http.Request, tmpl string, td *template.Data) {
	if err := h.render.Render(w, r, tmpl, td); err != nil {
		h.log.Error("render template", zap.String("template", tmpl), zap.Error(err))
	}
}

func (h *handlers) serverError(w http.ResponseWriter, err error) {
	h.log.Error("request failed", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
