package config

import (
	"errors"
	"time"

	"github.com/focusnest/auth-service/internal/envconfig"
)

const (
	DataStoreMemory    = "memory"
	DataStoreFirestore = "firestore"
	DataStorePostgres  = "postgres"

	EnvDevelopment = "development"
)

type Config struct {
	Port         string `validate:"required,numeric"`
	Environment  string `validate:"required,oneof=development staging production test"`
	LogLevel     string `validate:"required,oneof=debug info warn error"`
	GCPProjectID string
	DataStore    string `validate:"required,oneof=memory firestore postgres"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Postgres     PostgresConfig
}

type AuthConfig struct {
	Mode     string        `validate:"required,oneof=local clerk noop"`
	Secret   string        `validate:"required_if=Mode local,omitempty,min=32"`
	Issuer   string        `validate:"required_if=Mode local"`
	TokenTTL time.Duration `validate:"gt=0"`
	JWKSURL  string        `validate:"required_if=Mode clerk,omitempty,url"`
	Audience string
}

type FirestoreConfig struct {
	EmulatorHost    string
	CredentialsFile string
}

type PostgresConfig struct {
	DSN      string
	MaxConns int32 `validate:"min=1"`
	MinConns int32 `validate:"min=0,ltefield=MaxConns"`
}

var (
	errMissingProjectID = errors.New("GCP_PROJECT_ID is required for the firestore datastore")
	errMissingDSN       = errors.New("DATABASE_URL is required for the postgres datastore")
)

// IsDevelopment reports whether internal diagnostics may be exposed to clients.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func Load() (Config, error) {
	ttl, err := envconfig.GetDuration("AUTH_TOKEN_TTL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	maxConns, err := envconfig.GetInt("DB_MAX_CONNECTIONS", 10)
	if err != nil {
		return Config{}, err
	}
	minConns, err := envconfig.GetInt("DB_MIN_CONNECTIONS", 2)
	if err != nil {
		return Config{}, err
	}

	authMode := envconfig.Get("AUTH_MODE", "local")
	issuer := envconfig.Get("AUTH_ISSUER", "focusnest-auth")
	if authMode == "clerk" {
		issuer = envconfig.Get("CLERK_ISSUER", "")
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		Environment:  envconfig.Get("APP_ENV", "production"),
		LogLevel:     envconfig.Get("LOG_LEVEL", "info"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", ""),
		DataStore:    envconfig.Get("DATASTORE", DataStoreMemory),
		Auth: AuthConfig{
			Mode:     authMode,
			Secret:   envconfig.Get("AUTH_SECRET", ""),
			Issuer:   issuer,
			TokenTTL: ttl,
			JWKSURL:  envconfig.Get("CLERK_JWKS_URL", ""),
			Audience: envconfig.Get("CLERK_AUDIENCE", ""),
		},
		Firestore: FirestoreConfig{
			EmulatorHost:    envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			CredentialsFile: envconfig.Get("FIRESTORE_CREDENTIALS_FILE", ""),
		},
		Postgres: PostgresConfig{
			DSN:      envconfig.Get("DATABASE_URL", ""),
			MaxConns: int32(maxConns),
			MinConns: int32(minConns),
		},
	}

	if err := envconfig.Validate(cfg); err != nil {
		return cfg, err
	}

	switch cfg.DataStore {
	case DataStoreFirestore:
		if cfg.GCPProjectID == "" {
			return cfg, errMissingProjectID
		}
	case DataStorePostgres:
		if cfg.Postgres.DSN == "" {
			return cfg, errMissingDSN
		}
	}
	return cfg, nil
}
