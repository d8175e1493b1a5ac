package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaggin/webauth/internal/auth"
	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/middleware"
	"github.com/ghaggin/webauth/internal/template"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	log    *zap.Logger
	server *http.Server
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   *config.Config
	Sessions *middleware.SessionManager
	Auth     *auth.Controller
	Renderer *template.Renderer
}

func New(p Params) (*Server, error) {
	return &Server{
		log: p.Log,
		server: &http.Server{
			Addr:    fmt.Sprintf("localhost:%d", p.Config.Server.Port),
			Handler: newRouter(p),
		},
	}, nil
}

func newRouter(p Params) chi.Router {
	h := &handlers{
		log:      p.Log,
		auth:     p.Auth,
		sessions: p.Sessions,
		render:   p.Renderer,
	}

	root := chi.NewRouter()
	root.Use(logRequests(p.Log))
	root.Use(p.Sessions.Wrap)
	root.Use(p.Sessions.VerifyCSRF)

	// Auth
	root.Group(func(r chi.Router) {
		r.Use(p.Sessions.RequireAuth)
		r.Get("/", h.home)
		r.Get("/users", h.users)
		r.Post("/logout", h.logout)
	})

	// No Auth
	root.Group(func(r chi.Router) {
		r.Get("/login", h.loginForm)
		r.Post("/login", h.login)
		r.Get("/register", h.registerForm)
		r.Post("/register", h.register)

		r.Handle("/static/*", http.StripPrefix("/static", http.FileServer(http.Dir(p.Config.Server.StaticDir))))
	})

	return root
}

// RegisterHooks should be invoked by fx
func RegisterHooks(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.server.Shutdown,
	})
}

func (s *Server) Start(_ context.Context) error {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.log.Error("error starting server", zap.Error(err))
		}
	}()
	return nil
}

func logRequests(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
