package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"varsityhub/internal/access"
	"varsityhub/internal/audit"
	"varsityhub/internal/directory"
	"varsityhub/internal/healthrecords"
	"varsityhub/internal/integrity"
	"varsityhub/internal/keys"
	"varsityhub/internal/phi"
	"varsityhub/internal/platform/config"
	"varsityhub/internal/platform/httpserver"
	"varsityhub/internal/platform/logger"
	"varsityhub/internal/platform/metrics"
	platformredis "varsityhub/internal/platform/redis"
	"varsityhub/internal/session"
	httptransport "varsityhub/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Resolve the key hierarchy up front: a production deployment without a
	// master secret must refuse to serve PHI requests at all.
	provider := keys.NewProvider(cfg.HealthDataKey, cfg.IsProduction(),
		keys.WithLogger(log),
		keys.WithIntegrityKeyOverride(cfg.AuditIntegrityKey),
	)
	if _, err := provider.FieldKey(); err != nil {
		log.Error("key configuration invalid", "error", err)
		os.Exit(1)
	}
	if cfg.IsProduction() && cfg.JWTSigningKey == config.DevJWTSigningKey {
		log.Error("JWT_SIGNING_KEY must be set in production")
		os.Exit(1)
	}

	m := metrics.New()
	cipher := phi.NewCipher(provider)
	stamper := integrity.NewStamper(provider)
	tokens := integrity.NewTokenIssuer(provider)

	var (
		auditStore audit.Store
		dir        directory.Store
		repo       healthrecords.Repo
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		auditStore = audit.NewPostgres(db)
		dir = directory.NewPostgres(db)
		repo = healthrecords.NewPostgresRepo(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		auditStore = audit.NewInMemory()
		dir = directory.NewInMemory()
		repo = healthrecords.NewInMemoryRepo()
	}

	var trl session.RevocationList = session.NewMemoryTRL()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = session.NewRedisTRL(redisClient.Client)
	}

	sink := audit.NewSink(auditStore, stamper,
		audit.WithLogger(log),
		audit.WithDroppedCounter(m.AuditAppendFailures),
	)
	gate := access.NewGate(sink, access.WithDecisionCounter(gateCounter{m}))
	records := healthrecords.NewService(repo, cipher, sink,
		healthrecords.WithLogger(log),
		healthrecords.WithDecryptFailureCounter(m.FieldDecryptFailures),
	)
	sessions := session.NewService(cfg.JWTSigningKey, "varsityhub", "varsityhub-api")

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Handler: httptransport.NewHandler(records, sink, tokens, log,
			httptransport.WithTokenCheckCounter(tokenCounter{m})),
		Gate:      gate,
		Sessions:  sessions,
		TRL:       trl,
		Directory: dir,
	})
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting varsityhub compliance core",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// gateCounter adapts the platform metrics to the gate's observer interface.
type gateCounter struct {
	m *metrics.Metrics
}

func (c gateCounter) Observe(classification, outcome string) {
	c.m.GateDecisions.WithLabelValues(classification, outcome).Inc()
}

// tokenCounter adapts the platform metrics to the handler's observer interface.
type tokenCounter struct {
	m *metrics.Metrics
}

func (c tokenCounter) Observe(result string) {
	c.m.TokenVerifications.WithLabelValues(result).Inc()
}
