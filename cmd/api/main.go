package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"savory/internal/auth"
	"savory/internal/db"
	"savory/internal/mailer"
	"savory/internal/ratelimiter"
	"savory/internal/security"
	"savory/internal/store"
	"savory/internal/uploads"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "1.0.0"

func loadRateLimiterConfig() ratelimiter.Config {
	requestsPerTimeFrame := 200
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsed
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", requestsPerTimeFrame)
		}
	}

	enabled := false
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsed, err := strconv.ParseBool(val); err == nil {
			enabled = parsed
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", enabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// newLogger builds a colored console logger writing to stdout.
func newLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	core := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar(), nil
}

func envString(key, fallback string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
		fmt.Printf("Invalid %s, defaulting to %d\n", key, fallback)
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
		fmt.Printf("Invalid %s, defaulting to %g\n", key, fallback)
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config{
		addr:        envString("ADDR", ":8080"),
		env:         envString("ENV", "development"),
		frontendURL: envString("FRONTEND_URL", "http://localhost:7777"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    int32(envInt("DB_MAX_CONNS", 30)),
			maxIdleTime: envString("DB_MAX_IDLE_TIME", "15m"),
		},
		mail: mailConfig{
			resetExp:  time.Hour,
			fromEmail: os.Getenv("SMTP_FROM_EMAIL"),
			smtp: smtpConfig{
				host:     os.Getenv("SMTP_HOST"),
				port:     envInt("SMTP_PORT", 587),
				username: os.Getenv("SMTP_USERNAME"),
				password: os.Getenv("SMTP_PASSWORD"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				accessTokenExp:  time.Hour * 24,
				refreshTokenExp: time.Hour * 24 * 9,
				iss:             "savory",
			},
		},
		uploads: uploadsConfig{
			dir:      envString("UPLOADS_DIR", "./public/uploads"),
			maxBytes: int64(envInt("UPLOADS_MAX_BYTES", 10<<20)),
		},
		maps: mapConfig{
			lat:  envFloat("MAP_DEFAULT_LAT", 43.2),
			lng:  envFloat("MAP_DEFAULT_LNG", -79.8),
			zoom: envInt("MAP_DEFAULT_ZOOM", 11),
		},
		rateLimiter: loadRateLimiterConfig(),
	}

	logger, err := newLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	pool, err := db.New(cfg.db.addr, cfg.db.maxConns, cfg.db.maxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	if err := db.RunMigrations(cfg.db.addr); err != nil {
		logger.Fatal(err)
	}
	logger.Info("database migrations applied")

	storage := store.NewStorage(pool)

	if err := uploads.EnsureDir(cfg.uploads.dir); err != nil {
		logger.Fatal(err)
	}

	namer, err := uploads.NewNamer(envString("UPLOADS_SALT", "savory"))
	if err != nil {
		logger.Fatal(err)
	}

	smtpClient, err := mailer.NewSMTPClient(
		cfg.mail.smtp.host,
		cfg.mail.smtp.port,
		cfg.mail.smtp.username,
		cfg.mail.smtp.password,
		cfg.mail.fromEmail,
	)
	if err != nil {
		logger.Fatal(err)
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
		cfg.auth.token.refreshTokenExp,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         storage,
		mailer:        smtpClient,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		sanitizer:     security.NewSanitizer(),
		namer:         namer,
	}

	// Metrics served at /debug/vars behind basic auth.
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		stat := pool.Stat()
		return map[string]any{
			"total_conns":    stat.TotalConns(),
			"idle_conns":     stat.IdleConns(),
			"acquired_conns": stat.AcquiredConns(),
			"max_conns":      stat.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
