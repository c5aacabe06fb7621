// Package config loads the service's environment-driven settings once at
// startup. Logging, tracing, vector-index, object-storage and port settings
// are read from the environment by their own packages and by cmd/main.go.
package config

import (
	"strings"
	"time"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
	"github.com/ganesh47/cf-metadata-sys/internal/utils"
)

type Config struct {
	LogMode  string
	LogLevel string
	InitDB   bool

	JWTClockSkew time.Duration

	OIDCDiscoveryURL  string
	OIDCClientID      string
	OIDCClientSecret  string
	OIDCRedirectURL   string
	JWKSRefreshPeriod time.Duration

	CORSAllowedOrigins []string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr string
	RedisDB   int

	VXURL            string
	VXAPIKey         string
	VXEdgeCollection string
	VXVectorDim      int

	EPAPIKey  string
	EPBaseURL string
	EPModel   string
}

// Load reads every recognized setting (spec §6.5) into a Config. log is used
// only for debug-level tracing of which env vars were seen; it may be nil
// during early bootstrap.
func Load(log *logger.Logger) Config {
	cfg := Config{
		LogMode:  utils.GetEnv("LOG_MODE", "development", log),
		LogLevel: utils.GetEnv("LOG_LEVEL", "info", log),
		InitDB:   isTruthy(utils.GetEnv("INIT_DB", "false", log)),

		JWTClockSkew: time.Duration(utils.GetEnvAsInt("JWT_CLOCK_SKEW_SECONDS", 30, log)) * time.Second,

		OIDCDiscoveryURL:  utils.GetEnv("OIDC_DISCOVERY_URL", "", log),
		OIDCClientID:      utils.GetEnv("OIDC_CLIENT_ID", "", log),
		OIDCClientSecret:  utils.GetEnv("OIDC_CLIENT_SECRET", "", log),
		OIDCRedirectURL:   utils.GetEnv("OIDC_REDIRECT_URL", "", log),
		JWKSRefreshPeriod: time.Duration(utils.GetEnvAsInt("JWKS_REFRESH_SECONDS", 600, log)) * time.Second,

		PostgresHost:     utils.GetEnv("POSTGRES_HOST", "localhost", log),
		PostgresPort:     utils.GetEnvAsInt("POSTGRES_PORT", 5432, log),
		PostgresUser:     utils.GetEnv("POSTGRES_USER", "postgres", log),
		PostgresPassword: utils.GetEnv("POSTGRES_PASSWORD", "", log),
		PostgresDB:       utils.GetEnv("POSTGRES_NAME", "graphmeta", log),

		RedisAddr: utils.GetEnv("REDIS_ADDR", "localhost:6379", log),
		RedisDB:   utils.GetEnvAsInt("REDIS_DB", 0, log),

		VXURL:            utils.GetEnv("VX_URL", "", log),
		VXAPIKey:         utils.GetEnv("VX_API_KEY", "", log),
		VXEdgeCollection: utils.GetEnv("VX_EDGE_COLLECTION", "", log),
		VXVectorDim:      utils.GetEnvAsInt("VX_VECTOR_DIM", 0, log),

		EPAPIKey:  utils.GetEnv("EP_API_KEY", "", log),
		EPBaseURL: utils.GetEnv("EP_BASE_URL", "https://api.openai.com/v1", log),
		EPModel:   utils.GetEnv("EP_EMBEDDING_MODEL", "text-embedding-3-small", log),
	}

	if origins := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
