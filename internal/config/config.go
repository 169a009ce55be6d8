package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// APIConfig describes how the console reaches the backend.
type APIConfig struct {
	BaseURL      string
	Timeout      time.Duration
	BypassHeader string
}

type SessionConfig struct {
	RefreshInterval time.Duration
	StorePath       string
	ObfuscationKey  string
}

type ListingConfig struct {
	PageSize        int
	WidthBreakpoint int
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	BucketProof string
	UseSSL      bool
	Region      string
	PublicURL   string
}

type SecurityConfig struct {
	JWTAccessSecret string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	SessionPurge    string
}

type AppConfig struct {
	Environment      string
	Locale           string
	API              APIConfig
	Session          SessionConfig
	Listing          ListingConfig
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("AFFCONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Environment != EnvDevelopment && cfg.Environment != EnvProduction {
		return nil, fmt.Errorf("invalid environment %q", cfg.Environment)
	}
	if cfg.Session.RefreshInterval < time.Second {
		cfg.Session.RefreshInterval = time.Second
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("locale", "id")

	v.SetDefault("api.baseurl", "http://localhost:8080/api")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.bypassheader", "ngrok-skip-browser-warning")

	v.SetDefault("session.refreshinterval", "10s")
	v.SetDefault("session.storepath", "")
	v.SetDefault("session.obfuscationkey", "affconsole")

	v.SetDefault("listing.pagesize", 10)
	v.SetDefault("listing.widthbreakpoint", 100)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.bucketproof", "affconsole-proofs")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccesssecret", "change-me")
	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "168h")
	v.SetDefault("security.sessionpurge", "0 0 * * * *")

	v.SetDefault("allowcorsorigins", []string{})
}
