package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"grouptrip.org/gtfsdb"
	"grouptrip.org/internal/appconf"
	"grouptrip.org/internal/events"
	"grouptrip.org/internal/schedule"
	"grouptrip.org/internal/search"
)

const (
	DefaultPort      = 4000
	DefaultRateLimit = 100 // requests per second per client
	DefaultDSN       = "planner.db"
	DefaultTimezone  = "UTC"
)

type Config struct {
	Env      string         `yaml:"env" validate:"oneof=development test production"`
	LogLevel string         `yaml:"log_level" validate:"oneof=debug info warn error"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Search   SearchConfig   `yaml:"search"`
	NATS     NATSConfig     `yaml:"nats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Port      int `yaml:"port" validate:"min=1,max=65535"`
	RateLimit int `yaml:"rate_limit" validate:"min=0"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite pgx"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type ScheduleConfig struct {
	Timezone             string        `yaml:"timezone" validate:"required,timezone"`
	RefreshInterval      time.Duration `yaml:"refresh_interval" validate:"min=1s"`
	ExpansionDays        int           `yaml:"expansion_days" validate:"min=1,max=14"`
	ExcludedTripPrefixes []string      `yaml:"excluded_trip_prefixes" validate:"dive,required"`
}

type SearchConfig struct {
	LookBack     time.Duration `yaml:"look_back" validate:"min=1m"`
	WalkDuration time.Duration `yaml:"walk_duration" validate:"min=0"`
}

// NATSConfig configures snapshot events. An empty URL disables them.
type NATSConfig struct {
	URL     string `yaml:"url" validate:"omitempty,url"`
	Subject string `yaml:"subject"`
}

type MetricsConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// Load reads the optional YAML file at path, applies .env and PLANNER_*
// environment overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PLANNER_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PLANNER_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("PLANNER_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PLANNER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNER_PORT: %q", v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("PLANNER_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("PLANNER_TIMEZONE"); v != "" {
		c.Schedule.Timezone = v
	}
	if v := os.Getenv("PLANNER_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PLANNER_REFRESH_INTERVAL: %q", v)
		}
		c.Schedule.RefreshInterval = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = appconf.Development.String()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Database.Driver == "" {
		c.Database.Driver = gtfsdb.DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == gtfsdb.DriverSQLite {
		c.Database.DSN = DefaultDSN
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = DefaultTimezone
	}
	if c.Schedule.RefreshInterval == 0 {
		c.Schedule.RefreshInterval = schedule.DefaultRefreshInterval
	}
	if c.Schedule.ExpansionDays == 0 {
		c.Schedule.ExpansionDays = schedule.DefaultExpansionDays
	}
	// An explicit empty list in the file disables exclusions.
	if c.Schedule.ExcludedTripPrefixes == nil {
		c.Schedule.ExcludedTripPrefixes = append([]string(nil), schedule.DefaultExcludedTripPrefixes...)
	}
	if c.Search.LookBack == 0 {
		c.Search.LookBack = search.DefaultLookBack
	}
	if c.Search.WalkDuration == 0 {
		c.Search.WalkDuration = search.DefaultWalkDuration
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = events.DefaultSubject
	}
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
}

// Validate checks every field and reports problems by their YAML key.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	problems := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		problems = append(problems, fmt.Sprintf("%s failed on the '%s' rule", key, fe.Tag()))
	}
	return errors.New(strings.Join(problems, "; "))
}

// Environment returns the parsed env key.
func (c *Config) Environment() appconf.Environment {
	env, _ := appconf.EnvFlagToEnvironment(c.Env)
	return env
}

// Location loads the schedule time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
