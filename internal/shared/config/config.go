package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Remote    RemoteConfig
	Sync      SyncConfig
	TLS       TLSConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	AllowedHosts    []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

// RemoteConfig points at the upstream finance service. Token is only needed
// by the background syncer; HTTP callers bring their own.
type RemoteConfig struct {
	BaseURL      string
	Token        string
	Timeout      time.Duration
	AuthTimeout  time.Duration
	AuthCacheTTL time.Duration
}

type SyncConfig struct {
	Enabled      bool
	Interval     time.Duration
	WorkerCount  int
	QueueSize    int
	RunOnStartup bool
}

type TLSConfig struct {
	Enabled  bool
	CertPath string
	KeyPath  string
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

var defaults = map[string]string{
	"HOST":             "0.0.0.0",
	"PORT":             "8080",
	"SHUTDOWN_TIMEOUT": "30s",

	"DB_HOST":           "localhost",
	"DB_PORT":           "5432",
	"DB_USER":           "postgres",
	"DB_NAME":           "finmirror",
	"DB_SSLMODE":        "disable",
	"DB_MAX_OPEN_CONNS": "10",

	"REMOTE_BASE_URL":     "https://api.zenmoney.ru/v8",
	"REMOTE_TIMEOUT":      "20s",
	"REMOTE_AUTH_TIMEOUT": "5s",
	"AUTH_CACHE_TTL":      "1m",

	"SYNC_ENABLED":        "false",
	"SYNC_INTERVAL":       "15s",
	"SYNC_WORKERS":        "1",
	"SYNC_QUEUE_SIZE":     "1",
	"SYNC_RUN_ON_STARTUP": "true",

	"TLS_ENABLED": "false",

	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",
	"LOG_MAX_SIZE_MB": "100",
	"LOG_MAX_BACKUPS": "3",
	"LOG_MAX_AGE":     "28",

	"OTEL_ENABLED":           "false",
	"OTEL_SERVICE_NAME":      "finmirror",
	"OTEL_ENVIRONMENT":       "development",
	"OTEL_EXPORTER_ENDPOINT": "localhost:4317",
	"METRICS_PORT":           "9090",
}

// Load reads configuration from the process environment, a .env file in the
// working directory if present, and the file named by CONFIG_FILE. Variables
// set in the environment win over both files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	l := loader{v: v}

	cfg := &Config{
		Server: ServerConfig{
			Port:            l.str("PORT"),
			Host:            l.str("HOST"),
			AllowedHosts:    splitList(l.str("ALLOWED_HOSTS")),
			ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:         l.str("DB_HOST"),
			Port:         l.integer("DB_PORT"),
			User:         l.str("DB_USER"),
			Password:     l.str("DB_PASSWORD"),
			DBName:       l.str("DB_NAME"),
			SSLMode:      l.str("DB_SSLMODE"),
			MaxOpenConns: l.integer("DB_MAX_OPEN_CONNS"),
		},
		Remote: RemoteConfig{
			BaseURL:      strings.TrimRight(l.str("REMOTE_BASE_URL"), "/"),
			Token:        l.str("ZENTOKEN"),
			Timeout:      l.duration("REMOTE_TIMEOUT"),
			AuthTimeout:  l.duration("REMOTE_AUTH_TIMEOUT"),
			AuthCacheTTL: l.duration("AUTH_CACHE_TTL"),
		},
		Sync: SyncConfig{
			Enabled:      l.boolean("SYNC_ENABLED"),
			Interval:     l.duration("SYNC_INTERVAL"),
			WorkerCount:  l.integer("SYNC_WORKERS"),
			QueueSize:    l.integer("SYNC_QUEUE_SIZE"),
			RunOnStartup: l.boolean("SYNC_RUN_ON_STARTUP"),
		},
		TLS: TLSConfig{
			Enabled:  l.boolean("TLS_ENABLED"),
			CertPath: l.str("TLS_CERT_PATH"),
			KeyPath:  l.str("TLS_KEY_PATH"),
		},
		Log: LogConfig{
			Level:      strings.ToLower(l.str("LOG_LEVEL")),
			Format:     strings.ToLower(l.str("LOG_FORMAT")),
			File:       l.str("LOG_FILE"),
			MaxSizeMB:  l.integer("LOG_MAX_SIZE_MB"),
			MaxBackups: l.integer("LOG_MAX_BACKUPS"),
			MaxAgeDays: l.integer("LOG_MAX_AGE"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      l.boolean("OTEL_ENABLED"),
			ServiceName:  l.str("OTEL_SERVICE_NAME"),
			Environment:  l.str("OTEL_ENVIRONMENT"),
			OTLPEndpoint: l.str("OTEL_EXPORTER_ENDPOINT"),
			MetricsPort:  l.str("METRICS_PORT"),
		},
	}
	if l.err != nil {
		return nil, l.err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.Sync.Interval < time.Second {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1s, got %s", c.Sync.Interval)
	}
	if c.Sync.WorkerCount < 1 {
		return fmt.Errorf("SYNC_WORKERS must be positive")
	}
	if c.Sync.QueueSize < 1 {
		return fmt.Errorf("SYNC_QUEUE_SIZE must be positive")
	}
	if c.Sync.Enabled && c.Remote.Token == "" {
		return fmt.Errorf("ZENTOKEN is required when SYNC_ENABLED=true")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_BASE_URL is required")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	// Validate TLS configuration
	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL is the same connection in URL form, as golang-migrate expects it.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// loader keeps the first parse error so Load can build the struct in one go.
type loader struct {
	v   *viper.Viper
	err error
}

func (l *loader) str(key string) string {
	return strings.TrimSpace(l.v.GetString(key))
}

func (l *loader) integer(key string) int {
	raw := l.str(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		l.fail(key, err)
		return 0
	}
	return n
}

func (l *loader) duration(key string) time.Duration {
	raw := l.str(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		l.fail(key, err)
		return 0
	}
	return d
}

// Accept: true, false, 1, 0, yes, no (case-insensitive)
func (l *loader) boolean(key string) bool {
	switch strings.ToLower(l.str(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no", "":
		return false
	default:
		l.fail(key, fmt.Errorf("not a boolean: %q", l.str(key)))
		return false
	}
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
