package config

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// postgres, sqlite oder memory
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"paper-atlas.db"`

	HTTPPort    string `envconfig:"HTTP_PORT" default:"4242"`
	LogMode     string `envconfig:"LOG_MODE" default:"production"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Semantic Scholar Graph API
	S2BaseURL        string `envconfig:"S2_BASE_URL" default:"https://api.semanticscholar.org/graph/v1"`
	S2APIKey         string `envconfig:"S2_API_KEY"`
	SearchFetchLimit int    `envconfig:"SEARCH_FETCH_LIMIT" default:"100"`

	// Ergebnis-Cache
	CacheTTL           time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	CacheSweepSchedule string        `envconfig:"CACHE_SWEEP_SCHEDULE" default:"@hourly"`

	EnrichAuthors     bool `envconfig:"ENRICH_AUTHORS" default:"true"`
	EnrichAuthorLimit int  `envconfig:"ENRICH_AUTHOR_LIMIT" default:"3"`
	GraphMaxDepth     int  `envconfig:"GRAPH_MAX_DEPTH" default:"3"`

	// Schlüssel für gespeicherte LLM-Credentials (32 Byte, hex oder base64)
	CredentialKey string        `envconfig:"CREDENTIAL_KEY" required:"true"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL      time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// OpenAI-kompatibler Endpoint, falls der Nutzer keine eigene Base-URL hinterlegt
	LLMBaseURL     string  `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel       string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.7"`
	LLMMaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"1000"`

	// Optional: S3-Export für Sammlungen
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled meldet, ob alle Angaben für den S3-Export vorhanden sind.
func (c *Config) S3Enabled() bool {
	return c.S3Key != "" && c.S3Secret != "" && c.S3URL != "" && c.S3Bucket != ""
}

// CredentialKeyBytes dekodiert CREDENTIAL_KEY. Akzeptiert werden 64 Hex-Zeichen
// oder Standard-Base64, jeweils für genau 32 Byte.
func (c *Config) CredentialKeyBytes() ([]byte, error) {
	raw := strings.TrimSpace(c.CredentialKey)
	if raw == "" {
		return nil, fmt.Errorf("CREDENTIAL_KEY is not set")
	}
	if b, err := hex.DecodeString(raw); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, fmt.Errorf("CREDENTIAL_KEY must encode exactly 32 bytes (hex or base64)")
}

// Validate prüft treiberabhängige Felder, die envconfig allein nicht abbilden kann.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for the postgres driver")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.GraphMaxDepth < 0 {
		return fmt.Errorf("GRAPH_MAX_DEPTH must not be negative")
	}
	if _, err := c.CredentialKeyBytes(); err != nil {
		return err
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
