package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "NABAVA"

// Oracle providers.
const (
	OracleOpenAI   = "openai"
	OracleGemini   = "gemini"
	OracleDisabled = "none"
)

type Config struct {
	App         AppConfig
	DB          DBConfig
	Auth        AuthConfig
	Oracle      OracleConfig
	Mail        MailConfig
	Negotiation NegotiationConfig
	Watcher     WatcherConfig
	CORS        CORSConfig
}

type AppConfig struct {
	Env       string `envconfig:"NABAVA_APP_ENV" default:"dev"`
	Addr      string `envconfig:"NABAVA_ADDR" default:":8080"`
	LogLevel  string `envconfig:"NABAVA_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"NABAVA_LOG_FORMAT" default:"json"`
	// MaxConns caps concurrent HTTP connections; 0 means unlimited.
	MaxConns int `envconfig:"NABAVA_MAX_CONNS" default:"256"`
}

type DBConfig struct {
	Path string `envconfig:"NABAVA_DB_PATH" default:"nabava.sqlite3"`
}

type AuthConfig struct {
	// JWTSecret signs operator tokens; a persisted random secret is used when empty.
	JWTSecret    string `envconfig:"NABAVA_JWT_SECRET"`
	WebhookToken string `envconfig:"NABAVA_WEBHOOK_TOKEN"`
}

type OracleConfig struct {
	Provider string        `envconfig:"NABAVA_ORACLE_PROVIDER" default:"openai"`
	APIKey   string        `envconfig:"NABAVA_ORACLE_API_KEY"`
	BaseURL  string        `envconfig:"NABAVA_ORACLE_BASE_URL" default:"https://api.groq.com/openai/v1"`
	Model    string        `envconfig:"NABAVA_ORACLE_MODEL" default:"llama-3.3-70b-versatile"`
	Timeout  time.Duration `envconfig:"NABAVA_ORACLE_TIMEOUT" default:"20s"`
}

type MailConfig struct {
	Enabled bool   `envconfig:"NABAVA_MAIL_ENABLED" default:"false"`
	Host    string `envconfig:"NABAVA_SMTP_HOST" default:"localhost"`
	Port    int    `envconfig:"NABAVA_SMTP_PORT" default:"1025"`
	From    string `envconfig:"NABAVA_MAIL_FROM" default:"procurement@msme-os.ai"`
	// Inbox receives simulated supplier replies.
	Inbox string `envconfig:"NABAVA_MAIL_INBOX" default:"procurement@msme-os.ai"`
}

type NegotiationConfig struct {
	ReplyDelay   time.Duration `envconfig:"NABAVA_REPLY_DELAY" default:"5s"`
	DefaultUnits int           `envconfig:"NABAVA_DEFAULT_UNITS" default:"500"`
}

type WatcherConfig struct {
	Enabled  bool          `envconfig:"NABAVA_WATCH_ENABLED" default:"false"`
	Dir      string        `envconfig:"NABAVA_WATCH_DIR" default:"chat_logs"`
	Debounce time.Duration `envconfig:"NABAVA_WATCH_DEBOUNCE" default:"500ms"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"NABAVA_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Oracle.Provider) {
	case OracleOpenAI, OracleGemini, OracleDisabled:
		c.Oracle.Provider = strings.ToLower(c.Oracle.Provider)
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Oracle.APIKey == "" {
		// .env files written for the Groq client use this name.
		c.Oracle.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Negotiation.DefaultUnits <= 0 {
		return fmt.Errorf("default units must be positive, got %d", c.Negotiation.DefaultUnits)
	}
	if c.App.MaxConns < 0 {
		return fmt.Errorf("max conns must not be negative, got %d", c.App.MaxConns)
	}
	if c.Negotiation.ReplyDelay < 0 {
		return fmt.Errorf("reply delay must not be negative")
	}
	return nil
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "dev")
}
