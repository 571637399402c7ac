// Package config loads the process configuration from the environment once
// at startup. The resulting values are immutable and passed to the services
// explicitly.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/fsx"
)

var ErrRegistry = errx.NewRegistry("CONFIG")

var (
	CodeInvalid     = ErrRegistry.Register("INVALID", errx.TypeValidation, 0, "Invalid configuration")
	CodeModelsLoad  = ErrRegistry.Register("MODELS_LOAD", errx.TypeValidation, 0, "Failed to load model declarations")
	CodeSecretsLoad = ErrRegistry.Register("SECRETS_LOAD", errx.TypeValidation, 0, "Failed to load signing material")
)

type Config struct {
	// Namespace prefixes every store key.
	Namespace string `env:"IDENTITY_NAMESPACE" envDefault:"EG"`
	ModelsDir string `env:"MODELS_DIR"`

	Store  StoreConfig
	Tokens TokenConfig
	JWT    JWTConfig
	Crypto CryptoConfig
	Recon  ReconConfig
	Server ServerConfig
}

type StoreConfig struct {
	// Mode is "redis" or "memory".
	Mode     string `env:"STORE_MODE" envDefault:"redis"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type TokenConfig struct {
	AccessTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"2h"`
	RefreshTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	AuthCodeTTL time.Duration `env:"AUTH_CODE_TTL" envDefault:"5m"`
}

type JWTConfig struct {
	Issuer    string        `env:"JWT_ISSUER" envDefault:"gatekeep"`
	Audience  []string      `env:"JWT_AUDIENCE" envSeparator:","`
	Subject   string        `env:"JWT_SUBJECT"`
	Algorithm string        `env:"JWT_ALGORITHM" envDefault:"HS256"`
	TTL       time.Duration `env:"JWT_TTL" envDefault:"2h"`
	// Secret is the HMAC secret or PEM private key. SecretFile wins when set.
	Secret     string `env:"JWT_SECRET"`
	SecretFile string `env:"JWT_SECRET_FILE"`
}

type CryptoConfig struct {
	CipherAlgorithm string `env:"CIPHER_ALGORITHM" envDefault:"aes-256-gcm"`
	CipherKey       string `env:"CIPHER_KEY"`
	BcryptCost      int    `env:"BCRYPT_COST" envDefault:"10"`
}

type ServerConfig struct {
	Port         int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, ErrRegistry.NewWithCause(CodeInvalid, fmt.Errorf("parse env: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	invalid := func(field, reason string) error {
		return ErrRegistry.New(CodeInvalid).WithDetail("field", field).WithDetail("reason", reason)
	}
	switch {
	case c.Namespace == "":
		return invalid("IDENTITY_NAMESPACE", "must not be empty")
	case c.Store.Mode != "redis" && c.Store.Mode != "memory":
		return invalid("STORE_MODE", "must be redis or memory")
	case c.Crypto.CipherKey == "":
		return invalid("CIPHER_KEY", "must not be empty")
	case c.Tokens.AccessTTL <= 0 || c.Tokens.RefreshTTL <= 0 || c.Tokens.AuthCodeTTL <= 0:
		return invalid("TOKEN_TTL", "lifetimes must be positive")
	case c.JWT.TTL <= 0:
		return invalid("JWT_TTL", "must be positive")
	}
	return nil
}

// SigningSecret resolves the JWT signing material, reading SecretFile through
// r when it is set.
func (c JWTConfig) SigningSecret(ctx context.Context, r fsx.FileReader) ([]byte, error) {
	if c.SecretFile == "" {
		if c.Secret == "" {
			return nil, ErrRegistry.New(CodeSecretsLoad).WithDetail("reason", "JWT_SECRET or JWT_SECRET_FILE is required")
		}
		return []byte(c.Secret), nil
	}
	data, err := r.ReadFile(ctx, c.SecretFile)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeSecretsLoad, err).WithDetail("file", c.SecretFile)
	}
	return data, nil
}
