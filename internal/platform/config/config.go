package config

import (
	"os"
	"time"
)

// Environment distinguishes deployments that must fail closed on missing secrets
// from development setups that may fall back to derived defaults.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
)

// DevJWTSigningKey is the development fallback for JWT_SIGNING_KEY. The server
// refuses to start with it in production.
const DevJWTSigningKey = "dev-secret-key-change-in-production"

// Server captures process-level configuration, resolved once at startup so the
// rest of the code never re-reads the environment.
type Server struct {
	Addr        string
	Environment Environment

	// HealthDataKey is the master secret protecting PHI. Either a 64-char hex
	// encoded 256-bit key or a passphrase to be stretched. Required in production.
	HealthDataKey string

	// AuditIntegrityKey optionally overrides the derived audit HMAC sub-key so
	// deployments can keep encryption and audit secrets separate.
	AuditIntegrityKey string

	// JWTSigningKey signs and validates platform session tokens.
	JWTSigningKey string

	DatabaseURL string
	Redis       RedisConfig
}

// RedisConfig holds connection settings for the session token revocation list.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VARSITYHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := EnvDevelopment
	if os.Getenv("VARSITYHUB_ENV") == string(EnvProduction) {
		env = EnvProduction
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = DevJWTSigningKey
	}

	return Server{
		Addr:              addr,
		Environment:       env,
		HealthDataKey:     os.Getenv("HEALTH_DATA_ENCRYPTION_KEY"),
		AuditIntegrityKey: os.Getenv("AUDIT_INTEGRITY_KEY"),
		JWTSigningKey:     jwtSigningKey,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// IsProduction reports whether the process runs in fail-closed mode.
func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}
