// Command server is the CLI entry point: "server [config-path]", exit 0
// normal, non-zero on bind/listen/notifier init failure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tyx3211/edgeserve/internal/config"
	"github.com/tyx3211/edgeserve/internal/dispatch"
	"github.com/tyx3211/edgeserve/internal/eventloop"
	"github.com/tyx3211/edgeserve/internal/handlers"
	"github.com/tyx3211/edgeserve/internal/jwtauth"
	"github.com/tyx3211/edgeserve/internal/logging"
	"github.com/tyx3211/edgeserve/internal/router"
	"github.com/tyx3211/edgeserve/internal/static"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.Bootstrap()

	configPath := "server.conf"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.LogSystem(cfgFallbackLevel(), "failed to load configuration", zap.String("path", configPath), zap.Error(err))
		return 1
	}

	if err := log.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "edgeserve: failed to initialise logging: %v\n", err)
		return 1
	}
	defer log.Sync()

	for _, w := range warnings {
		log.LogSystem(config.LevelWarning, w)
	}

	auth := jwtauth.New(cfg.JwtEnabled, cfg.JwtSecret)
	users := &handlers.Users{Path: filepath.Join(cfg.DocumentRoot, "data", "users.csv")}
	api := &handlers.API{Users: users, Auth: auth, DocumentRoot: cfg.DocumentRoot}

	rb := router.NewBuilder()
	rb.Register("POST", "/api/login", api.Login)
	rb.Register("GET", "/api/user", api.User)
	rb.Register("GET", "/api/search", api.Search)
	routes := rb.Build()

	staticResponder := static.New(cfg.DocumentRoot, cfg.MimeEnabled)
	d := dispatch.New(routes, staticResponder)

	loop, err := eventloop.New(cfg.ListenPort, d, log, cfg.LogLevel)
	if err != nil {
		log.LogSystem(config.LevelError, "failed to start reactor", zap.Error(err))
		return 1
	}

	log.LogSystem(config.LevelInfo, "listening", zap.Int("port", cfg.ListenPort))
	if err := loop.Run(); err != nil {
		log.LogSystem(config.LevelError, "event loop exited", zap.Error(err))
		return 1
	}
	return 0
}

func cfgFallbackLevel() config.LogLevel { return config.LevelError }
