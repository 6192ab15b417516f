// Server runs the HattBooks auth backend: account registration, local and
// external login, and refresh-token sessions over HTTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hattbooks/backend/internal/audit"
	auditrepo "hattbooks/backend/internal/audit/repository"
	"hattbooks/backend/internal/auth"
	"hattbooks/backend/internal/auth0"
	"hattbooks/backend/internal/config"
	"hattbooks/backend/internal/db"
	"hattbooks/backend/internal/security"
	"hattbooks/backend/internal/server"
	"hattbooks/backend/internal/server/middleware"
	"hattbooks/backend/internal/session"
	"hattbooks/backend/internal/telemetry"
	"hattbooks/backend/internal/telemetry/otel"
	"hattbooks/backend/internal/telemetry/producer"
	userrepo "hattbooks/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "hattbooks-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	tokens := security.NewTokenProvider(
		[]byte(cfg.JWTAccessSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := security.NewHasher(cfg.BcryptCost)
	sessions := session.NewManager(users, tokens.RefreshTTL())
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))

	var verifier middleware.ExternalVerifier
	auth0Cfg := auth0.Config{
		Domain:   cfg.Auth0Domain,
		Issuer:   cfg.ExternalIssuer(),
		Audience: cfg.Auth0Audience,
	}
	if auth0Cfg.Enabled() {
		v, err := auth0.NewVerifier(ctx, auth0Cfg)
		if err != nil {
			log.Fatalf("auth0: %v", err)
		}
		verifier = v
		log.Printf("external token verification enabled (issuer %s)", auth0Cfg.Issuer)
	} else {
		log.Println("external token verification disabled (AUTH0_DOMAIN/AUTH0_AUDIENCE not set)")
	}

	// Request telemetry goes to Kafka when brokers are configured, and to the
	// OTel log pipeline otherwise.
	emitter := otel.NewEventEmitter(providers.LoggerProvider)
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kp, err := producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		emitter = kp
		defer kp.Close()
		log.Printf("telemetry enabled (topic %s)", cfg.TelemetryKafkaTopic)
	}

	svc := auth.NewService(users, sessions, hasher, tokens, auditLogger)
	handler := server.NewHandler(server.Deps{
		Auth:          svc,
		Authenticator: middleware.NewAuthenticator(users, tokens, verifier),
		HealthPinger:  conn,
		Telemetry:     emitter,
	})

	srv := server.New(cfg.HTTPAddr, handler)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before the providers close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
