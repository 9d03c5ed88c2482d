// Development server for the identity kit. Wires the core against Postgres
// and Redis when configured, falling back to in-memory stores for quick local
// runs.
package main

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap"

	identityhttp "github.com/roomhive/identitykit/adapters/http"
	"github.com/roomhive/identitykit/core"
	jwtkit "github.com/roomhive/identitykit/jwt"
	oidckit "github.com/roomhive/identitykit/oidc"
	"github.com/roomhive/identitykit/riverjobs"
	"github.com/roomhive/identitykit/sms"
	memorystore "github.com/roomhive/identitykit/storage/memory"
	pgstore "github.com/roomhive/identitykit/storage/postgres"
	redisstore "github.com/roomhive/identitykit/storage/redis"
)

type config struct {
	ListenAddr     string `env:"IDENTITYKIT_LISTEN_ADDR" envDefault:":8080"`
	Issuer         string `env:"IDENTITYKIT_ISSUER" envDefault:"http://localhost:8080"`
	Audience       string `env:"IDENTITYKIT_AUDIENCE" envDefault:"roomhive"`
	CountryCode    string `env:"IDENTITYKIT_COUNTRY_CODE" envDefault:"91"`
	DevMode        bool   `env:"IDENTITYKIT_DEV_MODE" envDefault:"false"`
	MigrateOnStart bool   `env:"IDENTITYKIT_MIGRATE_ON_START" envDefault:"true"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret string `env:"IDENTITYKIT_JWT_SECRET"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioVerifySID  string `env:"TWILIO_VERIFY_SERVICE_SID"`

	VonageAPIKey    string `env:"VONAGE_API_KEY"`
	VonageAPISecret string `env:"VONAGE_API_SECRET"`
	VonageFrom      string `env:"VONAGE_FROM"`

	GoogleClientID     string `env:"OIDC_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"OIDC_GOOGLE_CLIENT_SECRET"`
	OIDCCallbackURL    string `env:"IDENTITYKIT_OIDC_CALLBACK_URL"`

	PurgeCron string `env:"IDENTITYKIT_PURGE_CRON" envDefault:"30 * * * *"`
}

func main() {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fatal(err)
	}

	log, err := newLogger(cfg.DevMode)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = log.Sync() }()

	cmd := "serve"
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		cmd = strings.TrimSpace(os.Args[1])
	}

	switch cmd {
	case "serve":
		err = runServe(cfg, log)
	case "migrate":
		err = runMigrate(cfg, log)
	default:
		err = fmt.Errorf("unknown command %q (supported: serve, migrate)", cmd)
	}
	if err != nil {
		log.Fatal("exiting", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runMigrate(cfg config, log *zap.Logger) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := pgstore.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runServe(cfg config, log *zap.Logger) error {
	ctx := context.Background()

	var (
		identities core.IdentityStore
		attempts   core.AttemptStore
		pool       *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if cfg.MigrateOnStart {
			if err := pgstore.Migrate(ctx, pool); err != nil {
				return err
			}
		}
		identities = pgstore.NewIdentityStore(pool)
		attempts = pgstore.NewAttemptStore(pool)
	} else {
		if !cfg.DevMode {
			return fmt.Errorf("DATABASE_URL is required outside dev mode")
		}
		log.Warn("no DATABASE_URL, using in-memory stores")
		identities = memorystore.NewIdentityStore()
		attempts = memorystore.NewAttemptStore()
	}

	signer, publicKeys, err := buildSigner(cfg)
	if err != nil {
		return err
	}

	svc := core.NewService(core.Config{
		Issuer:             cfg.Issuer,
		Audience:           cfg.Audience,
		DefaultCountryCode: cfg.CountryCode,
		AllowLocalFallback: cfg.DevMode,
		Providers:          oidcProviders(cfg),
	}, identities, attempts, signer).
		WithLogger(log.Named("core")).
		WithPublicKeys(publicKeys).
		WithCodeProviders(
			sms.NewTwilioVerify(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifySID),
			sms.NewVonage(cfg.VonageAPIKey, cfg.VonageAPISecret, cfg.VonageFrom),
			sms.NewLocalFixedCode(log.Named("sms")),
		)

	api := identityhttp.NewService(svc).WithLogger(log.Named("http"))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		api.WithRateLimiter(redisstore.NewRateLimiter(rdb, 60, time.Minute))
	}

	if providers := svc.Options().Providers; len(providers) > 0 {
		manager := oidckit.NewManager(providers)
		var states oidckit.StateCache
		if rdb != nil {
			states = redisstore.NewStateCache(rdb, 15*time.Minute)
		} else {
			states = memorystore.NewStateCache(15 * time.Minute)
		}
		callback := cfg.OIDCCallbackURL
		if callback == "" {
			callback = strings.TrimRight(cfg.Issuer, "/") + "/auth/oidc/callback"
		}
		api.WithOIDC(manager, states, callback)
	}

	if pool != nil {
		if err := startPurgeJob(ctx, pool, attempts, cfg.PurgeCron); err != nil {
			return err
		}
	}

	log.Info("listening", zap.String("addr", cfg.ListenAddr))
	return http.ListenAndServe(cfg.ListenAddr, api.APIHandler())
}

// oidcProviders collects the relying-party settings present in the
// environment, keyed by provider slug.
func oidcProviders(cfg config) map[string]oidckit.RPConfig {
	providers := map[string]oidckit.RPConfig{}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		providers["google"] = oidckit.RPConfig{
			Issuer:       "https://accounts.google.com",
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	return providers
}

func buildSigner(cfg config) (jwtkit.Signer, map[string]*rsa.PublicKey, error) {
	if cfg.JWTSecret != "" {
		return jwtkit.NewHMACSigner("hs-1", []byte(cfg.JWTSecret)), nil, nil
	}
	signer, err := jwtkit.NewDevRSASigner()
	if err != nil {
		return nil, nil, err
	}
	return signer, map[string]*rsa.PublicKey{signer.KID(): signer.PublicKey()}, nil
}

func startPurgeJob(ctx context.Context, pool *pgxpool.Pool, attempts core.AttemptStore, cronSpec string) error {
	workers := river.NewWorkers()
	riverjobs.RegisterPurgeExpiredAttemptsWorker(workers, attempts)
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 5}},
		Workers: workers,
	})
	if err != nil {
		return err
	}
	if err := riverjobs.AddPurgeExpiredAttemptsPeriodicJob(client, cronSpec, riverjobs.PurgeExpiredAttemptsArgs{}, true); err != nil {
		return err
	}
	return client.Start(ctx)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "identitykit-devserver:", err)
	os.Exit(1)
}
