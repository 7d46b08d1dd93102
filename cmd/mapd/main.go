package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/manzanit0/studymap/pkg/alert"
	"github.com/manzanit0/studymap/pkg/config"
	"github.com/manzanit0/studymap/pkg/geocode"
	"github.com/manzanit0/studymap/pkg/geolocation"
	"github.com/manzanit0/studymap/pkg/kakao"
	"github.com/manzanit0/studymap/pkg/logger"
	"github.com/manzanit0/studymap/pkg/mapview"
	"github.com/manzanit0/studymap/pkg/mapview/headless"
	"github.com/manzanit0/studymap/pkg/middleware"
	"github.com/manzanit0/studymap/pkg/study"
	"github.com/manzanit0/studymap/pkg/whttp"
)

const ServiceName = "mapd"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger.InitGlobalSlog(ServiceName, cfg.SlogLevel())

	studies, closeStudies, err := newStudyRepository(cfg.Database)
	if err != nil {
		panic(err)
	}
	defer closeStudies()

	opts := []kakao.Option{kakao.WithBaseURL(cfg.Kakao.BaseURL), kakao.WithRateLimit(cfg.Kakao.RequestsPerSecond)}
	search := kakao.NewCircuitBreakerClient(
		kakao.NewClient(whttp.NewClient(cfg.Kakao.Timeout, cfg.Log.Debug), cfg.Kakao.APIKey, opts...),
	)

	geocoder := newGeocoder(cfg.Map, search)
	notifier := newNotifier(cfg.Alert)

	locators := []geolocation.Locator{geolocation.FromContext()}
	if cfg.Map.HomeAddress != "" {
		locators = append(locators, geolocation.Geocoded(geocoder, cfg.Map.HomeAddress))
	}

	sdk := headless.New()
	client := mapview.New(sdk, search, geolocation.First(locators...),
		mapview.WithDefaultCenter(mapview.Coordinate{Latitude: cfg.Map.Latitude, Longitude: cfg.Map.Longitude}),
		mapview.WithDefaultLevel(cfg.Map.Level),
	)
	client.InitMapView("map")

	s := newServer(client, sdk, geocoder, studies, notifier)

	r := gin.New()
	r.Use(middleware.TraceID())
	r.Use(middleware.Recovery(notifier))
	r.Use(middleware.Logger(cfg.Log.Debug))
	r.Use(middleware.Position())
	s.routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: fmt.Sprintf(":%s", cfg.Server.Port), Handler: r}
	go func() {
		slog.Info(fmt.Sprintf("serving HTTP on :%s", cfg.Server.Port))

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server shutdown abruptly", "error", err.Error())
		} else {
			slog.Info("server shutdown gracefully")
		}

		stop()
	}()

	// Listen for OS interrupt
	<-ctx.Done()
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err.Error())
	}

	slog.Info("server exited")
}

func newStudyRepository(cfg config.DatabaseConfig) (study.Repository, func(), error) {
	if cfg.URL == "" {
		slog.Warn("no DATABASE_URL configured, serving an empty in-memory study store")
		return study.InMemory{}, func() {}, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open db conn: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("unable to ping database: %w", err)
	}

	slog.Info("connected to the database successfully")

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing db connection", "error", err.Error())
		}
	}

	return study.NewPgRepository(db), closeDB, nil
}

func newGeocoder(cfg config.MapConfig, search kakao.Client) geocode.Client {
	if cfg.Geocoder == config.GeocoderOpenstreetmap {
		return geocode.NewOpenstreetmapClient()
	}

	return geocode.NewKakaoClient(search)
}

func newNotifier(cfg config.AlertConfig) alert.Notifier {
	logNotifier := alert.NewLogNotifier(slog.Default())
	if cfg.WebhookURL == "" {
		return logNotifier
	}

	return alert.Multi(logNotifier, alert.NewWebhookNotifier(whttp.NewLoggingClient(), cfg.WebhookURL))
}
