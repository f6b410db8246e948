package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memory/assets"
	"github.com/robalobadob/memory/internal/auth"
	"github.com/robalobadob/memory/internal/config"
	"github.com/robalobadob/memory/internal/db"
	"github.com/robalobadob/memory/internal/httpserver"
	"github.com/robalobadob/memory/internal/results"
	"github.com/robalobadob/memory/internal/store"
	"github.com/robalobadob/memory/internal/theme"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer conn.Close()

	migrations, err := assets.Migrations()
	if err != nil {
		log.Fatal().Err(err).Msg("load migrations")
	}
	ctx := context.Background()
	if err := db.Migrate(ctx, conn, migrations); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	themes, err := theme.Load(cfg.ThemesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load themes")
	}
	if _, err := themes.Get(cfg.DefaultTheme); err != nil {
		log.Fatal().Err(err).Msg("default theme")
	}

	rs := results.NewStore(conn)
	rec := results.NewRecorder(rs, 0)
	go rec.Run()

	sessions := store.NewMemoryStore()
	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Store:    sessions,
		Users:    auth.NewUsers(conn),
		Results:  rs,
		Recorder: rec,
		Themes:   themes,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Strs("themes", themes.Names()).Msg("starting memory server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	sessions.CloseAll()
	rec.Close()
}
