package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"

	"github.com/promptkit/promptsync/internal/api"
	"github.com/promptkit/promptsync/pkg/promptsync"
	"github.com/promptkit/promptsync/pkg/promptsync/config"
)

// serverEnv holds settings that belong to the executable, not the library.
type serverEnv struct {
	JWTSecret string `env:"JWT_SECRET" env-default:"dev-secret"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"console"`
}

func main() {
	fallbackLogger := zerolog.New(os.Stderr)

	var env serverEnv
	if err := cleanenv.ReadEnv(&env); err != nil {
		fallbackLogger.Fatal().Err(err).Msg("failed to read environment")
	}

	logger, err := newLogger(env.LogLevel, env.LogFormat)
	if err != nil {
		fallbackLogger.Fatal().Err(err).Msg("failed to configure logging")
	}

	cfg, err := config.LoadServerConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	var extra []promptsync.Option
	if cfg.EnableEventLogging {
		extra = append(extra, promptsync.WithEventSink(newLogEventSink(logger)))
	}
	svc, err := cfg.BuildService(ctx, extra...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build service")
	}

	tokenAuth := jwtauth.New("HS256", []byte(env.JWTSecret), nil)

	templateHandler := api.NewTemplateHandler(svc)
	catalogHandler := api.NewCatalogHandler(svc)
	imageHandler := api.NewImageHandler(svc)
	defer catalogHandler.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)

		r.Mount("/api/v1/templates", templateHandler.Routes())
		r.Mount("/api/v1/public/templates", templateHandler.PublicRoutes())
		r.Mount("/api/v1/catalog", catalogHandler.Routes())
		r.Mount("/api/v1/images", imageHandler.Routes())
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Str("database", cfg.DatabaseType).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logger zerolog.Logger
	switch format {
	case "json":
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}
	return logger.Level(lvl), nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
