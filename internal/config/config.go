package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// dbEnv maps config keys to the unprefixed variables the tool has always read.
var dbEnv = []struct{ key, env string }{
	{"postgres.host", "DB_HOST"},
	{"postgres.port", "DB_PORT"},
	{"postgres.name", "DB_NAME"},
	{"postgres.user", "DB_USER"},
	{"postgres.password", "DB_PASSWORD"},
}

// ---- Root ----

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	API       APIConfig       `mapstructure:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	APIAddr       string `mapstructure:"api_addr"`
	DashboardAddr string `mapstructure:"dashboard_addr"`
	APIKey        string `mapstructure:"api_key"`
}

type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	SSLMode          string        `mapstructure:"sslmode"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

type APIConfig struct {
	TopLimit         int  `mapstructure:"top_limit"`
	SlowDisableIndex bool `mapstructure:"slow_disable_index"`
}

type DashboardConfig struct {
	MinN     int `mapstructure:"min_n"`
	MaxN     int `mapstructure:"max_n"`
	DefaultN int `mapstructure:"default_n"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type ReportConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

type BreakerConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"`
	OpenFor       time.Duration `mapstructure:"open_for"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

type ClickHouseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

// LoadOptions tunes Load for the different entry points.
type LoadOptions struct {
	// RequireDBEnv makes every DB_* variable mandatory; the API never falls back to defaults.
	RequireDBEnv bool
}

// MissingEnvError lists the DB_* variables that were required but not set.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides
// (SQLPERF_* plus the bare DB_* names).
func Load(path string, opts LoadOptions) (Config, error) {
	if opts.RequireDBEnv {
		if err := checkDBEnv(); err != nil {
			return Config{}, err
		}
	}

	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("merge %s: %w", path, err)
		}
	}

	// env override (SQLPERF_*)
	v.SetEnvPrefix("SQLPERF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, b := range dbEnv {
		if err := v.BindEnv(b.key, b.env); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func checkDBEnv() error {
	var missing []string
	for _, b := range dbEnv {
		if val, ok := os.LookupEnv(b.env); !ok || strings.TrimSpace(val) == "" {
			missing = append(missing, b.env)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Vars: missing}
	}
	return nil
}

// Validate rejects settings the tool cannot run with.
func (c Config) Validate() error {
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is empty")
	}
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		return fmt.Errorf("invalid postgres.port %d", c.Postgres.Port)
	}
	if c.Postgres.Name == "" {
		return fmt.Errorf("postgres.name is empty")
	}
	if c.API.TopLimit <= 0 {
		return fmt.Errorf("invalid api.top_limit %d", c.API.TopLimit)
	}
	d := c.Dashboard
	if d.MinN <= 0 || d.MinN > d.MaxN || d.DefaultN < d.MinN || d.DefaultN > d.MaxN {
		return fmt.Errorf("invalid dashboard range min=%d max=%d default=%d", d.MinN, d.MaxN, d.DefaultN)
	}
	return nil
}

// DSN renders a pgx-compatible connection URL.
func (p PostgresConfig) DSN() string {
	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	if p.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(p.ConnectTimeout.Round(time.Second)/time.Second)))
	}
	if p.StatementTimeout > 0 {
		q.Set("statement_timeout", strconv.FormatInt(p.StatementTimeout.Milliseconds(), 10))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
