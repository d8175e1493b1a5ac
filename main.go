package main

import (
	"flag"

	"github.com/ghaggin/webauth/internal/auth"
	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/middleware"
	"github.com/ghaggin/webauth/internal/repository"
	"github.com/ghaggin/webauth/internal/template"
	"github.com/ghaggin/webauth/internal/web"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	var configPath = flag.String("config", "", "path to yaml config file")
	flag.Parse()

	newPath := func() config.Path {
		return config.Path(*configPath)
	}

	app := fx.New(
		fx.Provide(
			zap.NewDevelopment,
			newPath,
			config.New,
			middleware.NewSessionManager,
			repository.New,
			auth.New,
			template.NewRenderer,
		),
		web.Module,
		fx.Invoke(web.RegisterHooks),
	)

	app.Run()
}
