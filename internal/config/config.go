// Package config defines the process configuration for the weather alert
// service. Configuration is loaded once at startup and is immutable
// thereafter.
//
// Values are resolved in priority order:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"weatheralert/internal/engine"
)

// Config is the top-level configuration. Sub-components receive only the
// sections they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"weatheralert"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Weather       WeatherConfig
	Disasters     DisasterFeedConfig
	AWS           AWSConfig
	Engine        EngineConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds the Postgres connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// CacheConfig configures the Redis weather cache. An empty RedisURL disables
// caching and every lookup goes to the upstream API.
type CacheConfig struct {
	RedisURL    SecretString  `envconfig:"REDIS_URL" validate:"omitempty,url"`
	CurrentTTL  time.Duration `envconfig:"CACHE_CURRENT_TTL" default:"5m"`
	ForecastTTL time.Duration `envconfig:"CACHE_FORECAST_TTL" default:"30m"`
	FeedTTL     time.Duration `envconfig:"CACHE_FEED_TTL" default:"2m"`
}

// WeatherConfig holds OpenWeatherMap credentials.
type WeatherConfig struct {
	APIKey    SecretString  `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	BaseURL   string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5" validate:"url"`
	Timeout   time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s"`
	UserAgent string        `envconfig:"HTTP_USER_AGENT" default:"WeatherAlert/1.0"`
}

// DisasterFeedConfig holds the USGS GeoJSON feed settings.
type DisasterFeedConfig struct {
	FeedURLs     []string      `envconfig:"USGS_FEED_URLS" default:"https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/significant_day.geojson,https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/4.5_day.geojson" validate:"min=1,dive,url"`
	MinMagnitude float64       `envconfig:"USGS_MIN_MAGNITUDE" default:"4.0"`
	MaxAge       time.Duration `envconfig:"USGS_MAX_AGE" default:"24h"`
	Timeout      time.Duration `envconfig:"USGS_TIMEOUT" default:"10s"`
}

// AWSConfig holds AWS resource identifiers. An empty AlertQueueURL disables
// publishing alerts for push delivery.
type AWSConfig struct {
	Region        string `envconfig:"AWS_REGION" default:"us-east-1"`
	AlertQueueURL string `envconfig:"SQS_ALERTS" validate:"omitempty,url"`

	// LocalStack support, empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// EngineConfig exposes the tunable engine constants.
type EngineConfig struct {
	DefaultMaxDistanceKm   float64 `envconfig:"ENGINE_MAX_DISTANCE_KM" default:"1000" validate:"gte=1,lte=20000"`
	MinSustainedHours      int     `envconfig:"ENGINE_MIN_SUSTAINED_HOURS" default:"3" validate:"gte=1"`
	TsunamiSpeedKmh        float64 `envconfig:"ENGINE_TSUNAMI_SPEED_KMH" default:"800" validate:"gt=0"`
	CoastalFactor          float64 `envconfig:"ENGINE_COASTAL_FACTOR" default:"0.75" validate:"gt=0,lte=1"`
	TsunamiCriticalMinutes int     `envconfig:"ENGINE_TSUNAMI_CRITICAL_MINUTES" default:"180" validate:"gte=1"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"WeatherAlert"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// EngineSettings overlays the configured values on engine.DefaultConfig.
func (c *Config) EngineSettings() engine.Config {
	ec := engine.DefaultConfig()
	ec.DefaultMaxDistanceKm = c.Engine.DefaultMaxDistanceKm
	ec.MinSustainedHours = c.Engine.MinSustainedHours
	ec.TsunamiSpeedKmh = c.Engine.TsunamiSpeedKmh
	ec.CoastalShallowingFactor = c.Engine.CoastalFactor
	ec.TsunamiCriticalMinutes = c.Engine.TsunamiCriticalMinutes
	return ec
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its
	// target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
