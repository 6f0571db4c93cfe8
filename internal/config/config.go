package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Provider exposes configuration values to the rest of the application.
// Components depend on this interface rather than on Config directly so tests
// can supply their own values.
type Provider interface {
	GetServerAddr() string

	GetAppStoreURL() string
	GetAppStoreTimeout() time.Duration
	GetAppJWTSecret() string

	GetIdentityURL() string
	GetIdentitySecretKey() string
	GetIdentityTimeout() time.Duration

	GetDBURL() string
	GetDBNs() string
	GetDBDb() string
	GetDBUser() string
	GetDBPass() string
	GetDBQueryTimeout() time.Duration
	GetDBExecuteTimeout() time.Duration

	GetMaxImageBytes() int64
}

// Config holds all configuration for the application.
type Config struct {
	ServerAddr string

	AppStoreURL     string
	AppStoreTimeout time.Duration
	AppJWTSecret    string

	IdentityURL       string
	IdentitySecretKey string
	IdentityTimeout   time.Duration

	DBUrl            string
	DBNs             string
	DBDb             string
	DBUser           string
	DBPass           string
	DBQueryTimeout   time.Duration
	DBExecuteTimeout time.Duration

	MaxImageBytes int64
}

// New loads configuration from a .env file (when present) and the environment.
func New() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		AppStoreURL:     os.Getenv("APP_STORE_URL"),
		AppStoreTimeout: getDuration("APP_STORE_TIMEOUT", 10*time.Second),
		AppJWTSecret:    os.Getenv("APP_JWT_SECRET"),

		IdentityURL:       os.Getenv("IDENTITY_URL"),
		IdentitySecretKey: os.Getenv("IDENTITY_SECRET_KEY"),
		IdentityTimeout:   getDuration("IDENTITY_TIMEOUT", 10*time.Second),

		DBUrl:            os.Getenv("SURREAL_URL"),
		DBNs:             os.Getenv("SURREAL_NS"),
		DBDb:             os.Getenv("SURREAL_DB"),
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBQueryTimeout:   getDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		DBExecuteTimeout: getDuration("DB_EXECUTE_TIMEOUT", 10*time.Second),

		MaxImageBytes: getInt64("MAX_IMAGE_BYTES", 5<<20),
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"APP_STORE_URL":       c.AppStoreURL,
		"APP_JWT_SECRET":      c.AppJWTSecret,
		"IDENTITY_URL":        c.IdentityURL,
		"IDENTITY_SECRET_KEY": c.IdentitySecretKey,
		"SURREAL_URL":         c.DBUrl,
		"SURREAL_NS":          c.DBNs,
		"SURREAL_DB":          c.DBDb,
	}
	for _, key := range []string{"APP_STORE_URL", "APP_JWT_SECRET", "IDENTITY_URL", "IDENTITY_SECRET_KEY", "SURREAL_URL", "SURREAL_NS", "SURREAL_DB"} {
		if required[key] == "" {
			errs = append(errs, errors.New(key+" is not set"))
		}
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("MAX_IMAGE_BYTES must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) GetServerAddr() string { return c.ServerAddr }

func (c *Config) GetAppStoreURL() string             { return c.AppStoreURL }
func (c *Config) GetAppStoreTimeout() time.Duration { return c.AppStoreTimeout }
func (c *Config) GetAppJWTSecret() string            { return c.AppJWTSecret }

func (c *Config) GetIdentityURL() string             { return c.IdentityURL }
func (c *Config) GetIdentitySecretKey() string       { return c.IdentitySecretKey }
func (c *Config) GetIdentityTimeout() time.Duration { return c.IdentityTimeout }

func (c *Config) GetDBURL() string                   { return c.DBUrl }
func (c *Config) GetDBNs() string                    { return c.DBNs }
func (c *Config) GetDBDb() string                    { return c.DBDb }
func (c *Config) GetDBUser() string                  { return c.DBUser }
func (c *Config) GetDBPass() string                  { return c.DBPass }
func (c *Config) GetDBQueryTimeout() time.Duration   { return c.DBQueryTimeout }
func (c *Config) GetDBExecuteTimeout() time.Duration { return c.DBExecuteTimeout }

func (c *Config) GetMaxImageBytes() int64 { return c.MaxImageBytes }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getDuration parses a Go duration string, falling back when unset or malformed.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s (%q), using %s", key, v, fallback)
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("invalid integer for %s (%q), using %d", key, v, fallback)
		return fallback
	}
	return n
}
