// Command lockboxd serves the session issuance API and the real-time
// admission endpoint from one process. Configuration comes from the
// environment (prefix LOCKBOX_) with an optional config file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/teamforge/lockbox"
	"github.com/teamforge/lockbox/httpapi"
	"github.com/teamforge/lockbox/internal/rate"
	"github.com/teamforge/lockbox/realtime"
	"github.com/teamforge/lockbox/store"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "lockboxd").Logger()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("LOCKBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path := os.Getenv("LOCKBOX_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("config file unreadable")
		}
	}

	if err := run(v, logger); err != nil {
		logger.Fatal().Err(err).Msg("lockboxd exited")
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.prefix", "lockbox")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("access.ttl", "1h")
	v.SetDefault("refresh.ttl", "168h")
	v.SetDefault("issuer", "lockbox")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("ratelimit.issue.max", 10)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("shutdown.grace", "15s")
}

func run(v *viper.Viper, logger zerolog.Logger) error {
	cfg := lockbox.DefaultConfig()
	cfg.Envelope.AccessTTL = v.GetDuration("access.ttl")
	cfg.Envelope.RefreshTTL = v.GetDuration("refresh.ttl")
	cfg.Envelope.Issuer = v.GetString("issuer")
	cfg.Cookie.Secure = v.GetBool("cookie.secure")
	cfg.Cookie.Domain = v.GetString("cookie.domain")

	for _, s := range strings.Split(v.GetString("signing.secrets"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Envelope.SigningSecrets = append(cfg.Envelope.SigningSecrets, []byte(s))
		}
	}
	cfg.Cipher.Secret = []byte(v.GetString("cipher.secret"))

	rdb := redis.NewClient(&redis.Options{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	})
	defer rdb.Close()

	sessionStore, err := buildStore(v, rdb, cfg, logger)
	if err != nil {
		return err
	}

	directory, err := buildDirectory(v, rdb)
	if err != nil {
		return err
	}

	engine, err := lockbox.New().
		WithConfig(cfg).
		WithStore(sessionStore).
		WithUserDirectory(directory).
		WithAuditSink(lockbox.NewZerologSink(logger.With().Str("component", "audit").Logger())).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	limiter := rate.NewLimiter(rdb, v.GetString("store.prefix")+":rl", rate.Config{
		MaxAttempts: v.GetInt("ratelimit.issue.max"),
		Window:      v.GetDuration("ratelimit.window"),
	})

	// The gateway counts into the engine's own metrics instance, so one
	// snapshot covers both tiers.
	gateway, err := realtime.NewGateway(engine.Verifier(), engine.Metrics(), logger.With().Str("component", "realtime").Logger())
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Mount("/", httpapi.NewHandler(engine, cfg, limiter, logger).Router())
	router.Handle("/realtime/v1/connect", realtime.NewAdmissionHandler(gateway, echoLoop(logger), nil, logger))
	router.Get("/metrics/v1/snapshot", metricsSnapshotHandler(engine))

	srv := &http.Server{
		Addr:              v.GetString("listen"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("shutdown.grace"))
	defer cancel()
	return srv.Shutdown(ctx)
}

func buildStore(v *viper.Viper, rdb *redis.Client, cfg lockbox.Config, logger zerolog.Logger) (store.Store, error) {
	switch backend := v.GetString("store.backend"); backend {
	case "redis":
		return store.NewRedisStore(rdb, v.GetString("store.prefix"), cfg.Envelope.RefreshTTL), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), v.GetString("postgres.dsn"))
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("using postgres session store")
		return store.NewPostgresStore(pool), nil
	default:
		return nil, errors.New("unknown store backend: " + backend)
	}
}

// buildDirectory selects the user directory implementation. The Redis set
// directory suits deployments where an upstream identity system mirrors the
// active user population into a set.
func buildDirectory(v *viper.Viper, rdb *redis.Client) (lockbox.UserDirectory, error) {
	key := v.GetString("directory.redis.set")
	if key == "" {
		return nil, errors.New("directory.redis.set is required")
	}
	return redisSetDirectory{redis: rdb, key: key}, nil
}

type redisSetDirectory struct {
	redis *redis.Client
	key   string
}

func (d redisSetDirectory) Exists(ctx context.Context, userID string) (bool, error) {
	return d.redis.SIsMember(ctx, d.key, userID).Result()
}

func metricsSnapshotHandler(engine *lockbox.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := engine.MetricsSnapshot()

		counters := make(map[string]uint64, len(snap.Counters))
		for id, v := range snap.Counters {
			counters[id.String()] = v
		}
		histograms := make(map[string][]uint64, len(snap.Histograms))
		for id, buckets := range snap.Histograms {
			histograms[id.String()] = buckets
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"counters":   counters,
			"histograms": histograms,
		})
	}
}

// echoLoop is the placeholder connection handler: it echoes frames back
// until the peer closes. Real deployments mount their own handler.
func echoLoop(logger zerolog.Logger) realtime.ConnHandler {
	return func(conn *websocket.Conn, userID string) {
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				logger.Warn().Err(err).Str("user_id", userID).Msg("write failed")
				return
			}
		}
	}
}
