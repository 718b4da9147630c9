// server runs the edge gate: it terminates tenant requests, evaluates access,
// and proxies auth and session admin endpoints.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"tenant-access-gate/backend/internal/audit"
	auditrepo "tenant-access-gate/backend/internal/audit/repository"
	"tenant-access-gate/backend/internal/config"
	"tenant-access-gate/backend/internal/db"
	"tenant-access-gate/backend/internal/gate"
	healthhandler "tenant-access-gate/backend/internal/health/handler"
	identityhandler "tenant-access-gate/backend/internal/identity/handler"
	identityservice "tenant-access-gate/backend/internal/identity/service"
	"tenant-access-gate/backend/internal/platform/rbac"
	"tenant-access-gate/backend/internal/ratelimit"
	"tenant-access-gate/backend/internal/security"
	"tenant-access-gate/backend/internal/server"
	sessionhandler "tenant-access-gate/backend/internal/session/handler"
	sessionrepo "tenant-access-gate/backend/internal/session/repository"
	"tenant-access-gate/backend/internal/telemetry"
	teleotel "tenant-access-gate/backend/internal/telemetry/otel"
	"tenant-access-gate/backend/internal/telemetry/producer"
	"tenant-access-gate/backend/internal/tenant"
	userrepo "tenant-access-gate/backend/internal/user/repository"
)

// redisPing adapts the go-redis client to the health probe.
type redisPing struct{ client *redis.Client }

func (p redisPing) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := teleotel.NewProviders(ctx, cfg.OTLPEndpoint, "tenant-access-gate", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	if cfg.DatabaseURL == "" {
		log.Fatal("config: DATABASE_URL must be set")
	}
	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	gf, err := config.LoadGateFile(cfg.GateConfigPath)
	if err != nil {
		log.Fatalf("gate config: %v", err)
	}
	registry, err := tenant.NewRegistry(gf)
	if err != nil {
		log.Fatalf("gate config: %v", err)
	}
	engine, err := rbac.NewEngine(gf)
	if err != nil {
		log.Fatalf("gate config: %v", err)
	}

	keyring, err := security.ParseKeyring(cfg.SessionKeys, cfg.SessionActiveKid)
	if err != nil {
		log.Fatalf("session keys: %v", err)
	}
	codec := security.NewSessionCodec(keyring)

	pubKey, err := security.ParsePublicKey(cfg.AssertionPublicKey)
	if err != nil {
		log.Fatalf("assertion key: %v", err)
	}
	verifier := security.NewAssertionVerifier(pubKey, cfg.AssertionIssuer, cfg.AssertionAudience)

	var redisClient *redis.Client
	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewRedis(redisClient, cfg.RateLimitThreshold, cfg.RateLimitWindow())
	} else {
		limiter = ratelimit.NewInMemory(cfg.RateLimitThreshold, cfg.RateLimitWindow())
	}

	users := userrepo.NewPostgresRepository(sqlDB)
	sessions := sessionrepo.NewPostgresRepository(sqlDB)
	auditor := audit.NewLogger(auditrepo.NewPostgresRepository(sqlDB),
		gate.GetClientIP, gate.GetCorrelationID)

	var emitter telemetry.EventEmitter
	var kafkaProducer *producer.KafkaProducer
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err = producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer kafkaProducer.Close()
		emitter = kafkaProducer
	} else {
		emitter = teleotel.NewEventEmitter(providers.LoggerProvider)
	}

	g := gate.New(tenant.NewResolver(cfg.RootDomain), registry, codec,
		sessions, users, engine, auditor, emitter, cfg.StoreTimeout())

	authSvc := identityservice.NewAuthService(users, sessions, verifier, codec,
		limiter, nil, auditor, cfg.SessionTTL())
	authHandler := identityhandler.NewAuthHandler(authSvc, identityhandler.CookieConfig{
		Name:   cfg.CookieName,
		Domain: cfg.RootDomain,
		Secure: cfg.Production(),
		TTL:    cfg.SessionTTL(),
	})

	var redisHealth healthhandler.RedisPinger
	if redisClient != nil {
		redisHealth = redisPing{redisClient}
	}

	router := server.NewRouter(server.Deps{
		Gate:     gate.NewMiddleware(g, cfg.CookieName, "/login"),
		Auth:     authHandler,
		Sessions: sessionhandler.NewSessionHandler(sessions, auditor),
		Health:   healthhandler.NewHandler(sqlDB, redisHealth),
		Auditor:  auditor,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, "gate"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		10*time.Second+telemetry.ShutdownDrainDuration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// Let in-flight async telemetry emits finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	log.Println("HTTP server stopped")
}
