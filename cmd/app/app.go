package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xbanchon/image-variant-service/internal/auth"
	"github.com/xbanchon/image-variant-service/internal/imagecache"
	"github.com/xbanchon/image-variant-service/internal/ratelimiter"
	"github.com/xbanchon/image-variant-service/internal/store"
	"github.com/xbanchon/image-variant-service/internal/store/cache"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type imageService interface {
	Upload(ctx context.Context, buf []byte) (store.ImageID, error)
	Get(ctx context.Context, id store.ImageID) ([]byte, error)
	Describe(ctx context.Context, imageID int64) (*store.Image, error)
}

type application struct {
	config        config
	authenticator auth.Authenticator
	logger        *zap.SugaredLogger
	images        imageService
	cacheStorage  cache.Storage
	rateLimiter   ratelimiter.Limiter
	tasks         interface{ Shutdown(context.Context) error }
}

type config struct {
	addr           string
	maxUploadBytes int64
	decodeMaxAlloc int64
	db             dbConfig
	auth           authConfig
	objectStore    string
	supabaseCfg    supabaseConfig
	minioCfg       minioConfig
	redisCfg       redisConfig
	cacheCfg       imagecache.Config
	tasksCfg       tasksConfig
	ratelimiter    ratelimiter.Config
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
	migrate      bool
}

type redisConfig struct {
	addr    string
	pw      string
	db      int
	enabled bool
}

type authConfig struct {
	secret string
	aud    string
	iss    string
}

type supabaseConfig struct {
	projectID string
	apiKey    string
	bucket    string
}

type minioConfig struct {
	endpoint  string
	bucket    string
	accessKey string
	secretKey string
	region    string
	useSSL    bool
}

type tasksConfig struct {
	workers   int
	queueSize int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", app.healthCheckHandler)
	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	r.Route("/images", func(r chi.Router) {
		r.With(app.RateLimiterMiddleware, app.AuthTokenMiddleware).Post("/", app.uploadImageHandler)
		r.Get("/{imageID}", app.getImageHandler)
		r.Get("/{imageID}/{variantID}", app.getVariantHandler)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		// Pending write-backs drain after the listener is closed.
		err := srv.Shutdown(ctx)
		if app.tasks != nil {
			err = multierr.Append(err, app.tasks.Shutdown(ctx))
		}
		shutdown <- err
	}()

	app.logger.Infow("server started", "addr", app.config.addr)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server stopped", "addr", app.config.addr)

	return nil
}
