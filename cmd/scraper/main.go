package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"reviewpulse/internal/adapters/appstore"
	"reviewpulse/internal/adapters/email"
	"reviewpulse/internal/adapters/httpx"
	"reviewpulse/internal/adapters/inference"
	"reviewpulse/internal/adapters/observability"
	"reviewpulse/internal/adapters/playstore"
	redisad "reviewpulse/internal/adapters/redis"
	"reviewpulse/internal/analysis"
	"reviewpulse/internal/app"
	"reviewpulse/internal/domain"
	"reviewpulse/internal/shared"
	mysqlrepo "reviewpulse/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve(cfg.MetricsAddr)

	if cfg.PlayAppURL == "" {
		log.Fatal().Msg("PLAY_APP_URL is required")
	}
	pkg, lang, country, err := playstore.ParseURL(cfg.PlayAppURL)
	if err != nil {
		log.Fatal().Err(err).Msg("PLAY_APP_URL unparseable")
	}

	log.Info().
		Str("bundle", pkg).
		Int("days", cfg.ScrapeDays).
		Int("max", cfg.MaxReviews).
		Bool("inference", cfg.InferenceEnabled()).
		Msg("scraper starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")
	repo := mysqlrepo.New(db)

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// one HTTP client per storefront so their rate limits stay independent
	ua := "reviewpulse/1.0"
	play := playstore.New(httpx.New(cfg.SourceRPS, cfg.SourceTimeout(), ua), "", lang, country)
	apple := appstore.New(httpx.New(cfg.SourceRPS, cfg.SourceTimeout(), ua), "", country)

	sources := []domain.SourceClient{play}
	refs := []domain.AppRef{{Source: domain.SourceGooglePlay, AppID: pkg, Bundle: pkg}}

	// App name is presentation metadata; a failed lookup never blocks the run.
	if name, err := play.AppName(ctx, pkg); err != nil {
		log.Warn().Err(err).Msg("app name lookup failed")
	} else {
		refs[0].Name = name
	}

	// The iOS listing is optional: resolved from the Android package, skipped
	// when no matching app exists.
	if trackID, trackName, err := apple.Lookup(ctx, pkg); err != nil {
		log.Warn().Err(err).Msg("no App Store listing resolved, continuing with Google Play only")
	} else {
		sources = append(sources, apple)
		refs = append(refs, domain.AppRef{Source: domain.SourceAppStore, AppID: trackID, Bundle: pkg, Name: trackName})
	}

	opts := analysis.Options{
		ThemeCount:     cfg.ThemeCount,
		ThemeSampleCap: cfg.ThemeSampleCap,
		QuoteSampleCap: cfg.QuoteSampleCap,
		TruncateChars:  cfg.TruncateChars,
	}
	var ins domain.Insights
	if cfg.InferenceEnabled() {
		inf := inference.New(cfg.InferenceAPIKey, cfg.InferenceBaseURL, cfg.InferenceModel, cfg.InferenceTimeout())
		ins = analysis.NewEnhanced(inf, opts, log.Logger)
	} else {
		ins = analysis.NewFrequency(opts)
	}

	pipe := app.NewPipeline(sources, repo, cache.Locker(), ins, app.RunOptions{
		ReportOptions: app.ReportOptions{
			WindowDays:     cfg.ScrapeDays,
			CriticalRating: cfg.CriticalRating,
			CriticalCap:    cfg.CriticalCap,
		},
		MaxReviews: cfg.MaxReviews,
		Workers:    cfg.Workers,
	}, log.Logger)

	rep, err := pipe.Run(ctx, refs)
	if err != nil {
		var pe *domain.PersistError
		if errors.As(err, &pe) {
			log.Fatal().Err(err).Int("written", pe.Written).Msg("run aborted during persistence; retry is safe")
		}
		log.Fatal().Err(err).Msg("run failed")
	}

	// report cache is stale the moment new rows land
	if rep.Stats.Persisted > 0 {
		_ = cache.Del(ctx, fmt.Sprintf("report:%s:%d", pkg, cfg.ScrapeDays))
	}

	if cfg.MailEnabled() {
		mailer := email.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
			cfg.MailFrom, strings.Split(cfg.MailTo, ","))
		sendCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		since := time.Now().UTC().AddDate(0, 0, -cfg.ScrapeDays)
		reviews, lerr := repo.ListWindow(sendCtx, pkg, since, cfg.MaxReviews)
		if lerr != nil {
			log.Warn().Err(lerr).Msg("could not load reviews for the attachment, sending without")
		}
		if err := mailer.Send(sendCtx, rep, reviews); err != nil {
			log.Error().Err(err).Str("state", string(domain.StateDeliveryFailed)).Msg("report delivery failed")
		} else {
			log.Info().Str("state", string(domain.StateDelivered)).Msg("report delivered")
		}
	}

	log.Info().
		Str("app", rep.AppName).
		Int("total_reviews", rep.TotalReviews).
		Int("persisted", rep.Stats.Persisted).
		Int("duplicates", rep.Stats.Duplicates).
		Int("malformed", rep.Stats.Malformed).
		Int("source_errors", rep.Stats.SourceErrors).
		Bool("enhanced", rep.Stats.Enhanced).
		Msg("run completed")
}
