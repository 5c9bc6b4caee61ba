package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// Evaluation scopes for the score stage.
const (
	// ScopeHoldout fits on the stratified training split and scores the
	// held-out split only.
	ScopeHoldout = "holdout"
	// ScopeInSample fits and scores the full prepared table. Capture rates
	// computed this way are optimistic.
	ScopeInSample = "in_sample"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Data     DataConfig     `mapstructure:"data"`
	Model    ModelConfig    `mapstructure:"model"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	OTEL     OTELConfig     `mapstructure:"otel"`
	Server   ServerConfig   `mapstructure:"server"`
}

// AppConfig holds process-level settings
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// DataConfig describes the input files and the record schema
type DataConfig struct {
	RawPath         string   `mapstructure:"raw_path"`
	PreparedPath    string   `mapstructure:"prepared_path"`
	ScoredPath      string   `mapstructure:"scored_path"`
	MissingSentinel string   `mapstructure:"missing_sentinel"`
	IDColumn        string   `mapstructure:"id_column"`
	PatientColumn   string   `mapstructure:"patient_column"`
	OutcomeColumn   string   `mapstructure:"outcome_column"`
	PositiveOutcome string   `mapstructure:"positive_outcome"`
	TargetColumn    string   `mapstructure:"target_column"`
	Categorical     []string `mapstructure:"categorical"`
	Numeric         []string `mapstructure:"numeric"`
}

// ModelConfig holds estimator and partitioning settings
type ModelConfig struct {
	// Threshold converts a probability into a positive decision. It is a
	// policy parameter, not a property of the model.
	Threshold     float64 `mapstructure:"threshold"`
	TestFraction  float64 `mapstructure:"test_fraction"`
	Seed          uint64  `mapstructure:"seed"`
	C             float64 `mapstructure:"c"`
	MaxIterations int     `mapstructure:"max_iterations"`
	Scope         string  `mapstructure:"scope"`
}

// CaptureConfig holds the reviewed-group fractions to report
type CaptureConfig struct {
	Fractions []float64 `mapstructure:"fractions"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// ServerConfig holds the dashboard API settings
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Endpoint       string `mapstructure:"endpoint"`
	Enabled        bool   `mapstructure:"enabled"`
}

// DefaultCategorical lists the categorical attributes of an encounter.
var DefaultCategorical = []string{"race", "gender", "age", "insulin", "diabetesMed"}

// DefaultNumeric lists the numeric attributes of an encounter.
var DefaultNumeric = []string{
	"time_in_hospital",
	"num_lab_procedures",
	"num_procedures",
	"num_medications",
	"number_outpatient",
	"number_emergency",
	"number_inpatient",
	"number_diagnoses",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data.raw_path", "data/raw/diabetic_data.csv")
	v.SetDefault("data.prepared_path", "data/processed/features.csv")
	v.SetDefault("data.scored_path", "data/processed/scored_data.csv")
	v.SetDefault("data.missing_sentinel", "?")
	v.SetDefault("data.id_column", "encounter_id")
	v.SetDefault("data.patient_column", "patient_nbr")
	v.SetDefault("data.outcome_column", "readmitted")
	v.SetDefault("data.positive_outcome", "<30")
	v.SetDefault("data.target_column", "readmitted_30d_flag")
	v.SetDefault("data.categorical", DefaultCategorical)
	v.SetDefault("data.numeric", DefaultNumeric)

	v.SetDefault("model.threshold", 0.5)
	v.SetDefault("model.test_fraction", 0.2)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.c", 1.0)
	v.SetDefault("model.max_iterations", 1000)
	v.SetDefault("model.scope", ScopeHoldout)

	v.SetDefault("capture.fractions", []float64{0.10, 0.15, 0.20})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "readmission")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl_seconds", 86400)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("otel.service_name", "readmission-risk")
	v.SetDefault("otel.service_version", "1.0.0")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.enabled", false)
}

// Load loads configuration from defaults, an optional config file and
// environment variables (MODEL_THRESHOLD, DATABASE_ENABLED, ...), in
// increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.NewInputError(fmt.Sprintf("read config %s", path), err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid config values: %v", err))
	}

	return cfg, nil
}

// Validate checks that the pipeline settings are usable.
func (c *Config) Validate() error {
	m := c.Model
	if math.IsNaN(m.Threshold) || m.Threshold <= 0 || m.Threshold >= 1 {
		return apperrors.NewValidationError(fmt.Sprintf("model.threshold must be in (0,1), got %v", m.Threshold))
	}
	if math.IsNaN(m.TestFraction) || m.TestFraction <= 0 || m.TestFraction >= 1 {
		return apperrors.NewValidationError(fmt.Sprintf("model.test_fraction must be in (0,1), got %v", m.TestFraction))
	}
	if m.C <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("model.c must be positive, got %v", m.C))
	}
	if m.MaxIterations <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("model.max_iterations must be positive, got %d", m.MaxIterations))
	}
	if m.Scope != ScopeHoldout && m.Scope != ScopeInSample {
		return apperrors.NewValidationError(fmt.Sprintf("model.scope must be %q or %q, got %q", ScopeHoldout, ScopeInSample, m.Scope))
	}

	for _, f := range c.Capture.Fractions {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return apperrors.NewValidationError(fmt.Sprintf("capture fraction must be in [0,1], got %v", f))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.NewValidationError(fmt.Sprintf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	d := c.Data
	if len(d.Categorical)+len(d.Numeric) == 0 {
		return apperrors.NewValidationError("schema has no feature columns")
	}
	if d.IDColumn == "" || d.OutcomeColumn == "" || d.TargetColumn == "" {
		return apperrors.NewValidationError("id, outcome and target column names are required")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDev reports whether the process runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}
