package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ganesh47/cf-metadata-sys/internal/config"
	"github.com/ganesh47/cf-metadata-sys/internal/graph"
	"github.com/ganesh47/cf-metadata-sys/internal/handlers"
	"github.com/ganesh47/cf-metadata-sys/internal/middleware"
	"github.com/ganesh47/cf-metadata-sys/internal/observability"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/cache"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/db"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/embedding"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/gcp"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/oidc"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/vectorindex"
	"github.com/ganesh47/cf-metadata-sys/internal/repos"
	"github.com/ganesh47/cf-metadata-sys/internal/server"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode, os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading configuration from main...")
	cfg := config.Load(log)

	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "graphmeta",
		Environment: logMode,
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	// Durable store (DS)
	postgresService, err := db.NewPostgresService(cfg, log)
	if err != nil {
		log.Fatal("postgres init failed", "error", err)
	}
	if cfg.InitDB {
		if err := postgresService.AutoMigrateAll(); err != nil {
			log.Fatal("postgres auto migration failed", "error", err)
		}
	}
	thePG := postgresService.DB()

	// Cache (KV)
	kv, err := cache.NewRedisKV(cfg, log)
	if err != nil {
		log.Fatal("redis init failed", "error", err)
	}

	// Object store (OS) — best-effort; snapshot export/import degrades to
	// DS-only if unconfigured, never blocks startup.
	var snapshotStore gcp.SnapshotStore
	if store, err := gcp.NewSnapshotStore(log); err != nil {
		log.Warn("snapshot object store unavailable, continuing without it", "error", err)
	} else {
		snapshotStore = store
	}

	// Vector index (VX) — best-effort; edge vectorization fails open per
	// spec §4.4 when unconfigured.
	var vx vectorindex.VectorIndex
	if vxCfg, err := vectorindex.ResolveConfigFromEnv(); err != nil {
		log.Warn("vector index unconfigured, edge vectorization disabled", "error", err)
	} else if vxIdx, err := vectorindex.NewVectorIndex(log, vxCfg); err != nil {
		log.Warn("vector index init failed, edge vectorization disabled", "error", err)
	} else {
		vx = vxIdx
	}

	// Embedding provider (EP)
	var embedder embedding.Embedder
	if cfg.EPAPIKey != "" {
		embedder = embedding.NewEmbedder(embedding.Config{
			APIKey:  cfg.EPAPIKey,
			BaseURL: cfg.EPBaseURL,
			Model:   cfg.EPModel,
		}, log)
	} else {
		log.Warn("embedding provider unconfigured, edge vectorization disabled")
	}

	// Auth Gate (OIDC verifier)
	verifier, err := oidc.NewVerifier(oidc.Config{
		DiscoveryURL:      cfg.OIDCDiscoveryURL,
		Audience:          cfg.OIDCClientID,
		ClockSkew:         cfg.JWTClockSkew,
		JWKSRefreshPeriod: cfg.JWKSRefreshPeriod,
	}, http.DefaultClient, log)
	if err != nil {
		log.Fatal("oidc verifier init failed", "error", err)
	}

	// Repos
	log.Info("Setting up repos from main...")
	nodeRepo := repos.NewNodeRepo(thePG, log)
	edgeRepo := repos.NewEdgeRepo(thePG, log)

	// Graph Engine services
	log.Info("Setting up graph engine services from main...")
	nodeService := graph.NewNodeService(nodeRepo, kv, log)
	edgeService := graph.NewEdgeService(edgeRepo, vx, toGraphEmbedder(embedder), log)
	queryService := graph.NewQueryService(nodeRepo, edgeRepo, log)
	traverseService := graph.NewTraverseService(nodeRepo, edgeRepo, log)
	snapshotService := graph.NewSnapshotService(nodeRepo, edgeRepo, kv, snapshotStore, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	h := server.Handlers{
		Node:     handlers.NewNodeHandler(nodeService),
		Edge:     handlers.NewEdgeHandler(edgeService),
		Query:    handlers.NewQueryHandler(queryService),
		Traverse: handlers.NewTraverseHandler(traverseService),
		Snapshot: handlers.NewSnapshotHandler(snapshotService),
		AuthCallback: handlers.NewAuthCallbackHandler(
			verifier,
			http.DefaultClient,
			cfg.OIDCDiscoveryURL,
			cfg.OIDCClientID,
			cfg.OIDCClientSecret,
			cfg.OIDCRedirectURL,
			log,
		),
	}

	// Middleware + router
	authMiddleware := middleware.NewAuthMiddleware(log, verifier)
	engine, err := server.NewRouter(authMiddleware, h, cfg.CORSAllowedOrigins, log)
	if err != nil {
		log.Fatal("router init failed", "error", err)
	}

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	log.Info("starting server", "addr", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatal("server exited", "error", err)
	}
}

// toGraphEmbedder adapts the EP component onto the graph package's narrow
// Embedder interface, keeping graph decoupled from the concrete provider.
// A nil embedder (EP unconfigured) is passed through as a nil interface so
// EdgeService.vectorize fails open.
func toGraphEmbedder(e embedding.Embedder) graph.Embedder {
	if e == nil {
		return nil
	}
	return e
}
