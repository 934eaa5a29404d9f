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

	"savory/internal/auth"
	"savory/internal/mailer"
	"savory/internal/ratelimiter"
	"savory/internal/security"
	"savory/internal/store"
	"savory/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         store.Storage
	logger        *zap.SugaredLogger
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	sanitizer     *security.Sanitizer
	namer         *uploads.Namer
}

type config struct {
	addr        string
	env         string
	frontendURL string
	db          dbConfig
	mail        mailConfig
	auth        authConfig
	uploads     uploadsConfig
	maps        mapConfig
	rateLimiter ratelimiter.Config
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

type mailConfig struct {
	resetExp  time.Duration
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type basicConfig struct {
	user string
	pass string
}

type tokenConfig struct {
	secret          string
	refreshSecret   string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type uploadsConfig struct {
	dir      string
	maxBytes int64
}

// mapConfig is the default viewport handed to map clients before they
// geolocate.
type mapConfig struct {
	lat  float64
	lng  float64
	zoom int
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(app.RateLimiterMiddleware)

	r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
	r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

	// Public pages
	r.Get("/", app.listStoresHandler)
	r.Get("/stores", app.listStoresHandler)
	r.Get("/stores/page/{page}", app.listStoresHandler)
	r.Get("/store/{slug}", app.getStoreBySlugHandler)
	r.Get("/tags", app.tagsHandler)
	r.Get("/tags/{tag}", app.tagsHandler)
	r.Get("/top", app.topStoresHandler)
	r.Get("/map", app.mapHandler)

	// Public JSON endpoints used by the map and search widgets
	r.Get("/api/search", app.searchStoresHandler)
	r.Get("/api/stores/near", app.nearbyStoresHandler)

	// Authentication
	r.Post("/register", app.registerUserHandler)
	r.Post("/login", app.createTokenHandler)
	r.Post("/token/refresh", app.refreshTokenHandler)
	r.Post("/account/forgot", app.forgotPasswordHandler)
	r.Get("/account/reset/{token}", app.checkResetTokenHandler)
	r.Post("/account/reset/{token}", app.resetPasswordHandler)

	// Routes that require a logged-in user
	r.Group(func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware)

		r.Get("/logout", app.logoutHandler)

		r.Get("/add", app.storeFormHandler)
		r.Post("/add", app.createStoreHandler)
		r.Post("/add/{storeID}", app.updateStoreHandler)
		r.Post("/add/{storeID}/photo", app.uploadStorePhotoHandler)
		r.Get("/stores/{storeID}/edit", app.editStoreHandler)

		r.Get("/account", app.getAccountHandler)
		r.Post("/account", app.updateAccountHandler)

		r.Get("/hearts", app.listHeartsHandler)
		r.Post("/reviews/{storeID}", app.createReviewHandler)
		r.Post("/api/stores/{storeID}/heart", app.toggleHeartHandler)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
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

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
