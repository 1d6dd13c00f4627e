package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "reviewpulse/internal/adapters/http_server"
	"reviewpulse/internal/adapters/observability"
	redisad "reviewpulse/internal/adapters/redis"
	"reviewpulse/internal/analysis"
	"reviewpulse/internal/app"
	"reviewpulse/internal/shared"
	mysqlrepo "reviewpulse/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve(cfg.MetricsAddr)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps: the API renders reports from stored data only, so the
	// always-available frequency extractor is enough here
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ins := analysis.NewFrequency(analysis.Options{
		ThemeCount:     cfg.ThemeCount,
		ThemeSampleCap: cfg.ThemeSampleCap,
		QuoteSampleCap: cfg.QuoteSampleCap,
		TruncateChars:  cfg.TruncateChars,
	})
	q := app.NewQueryService(repo, ins, cache, cfg.CacheTTLDur(), app.ReportOptions{
		WindowDays:     cfg.ScrapeDays,
		CriticalRating: cfg.CriticalRating,
		CriticalCap:    cfg.CriticalCap,
	}, cfg.MaxReviews)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
