package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Record store backends
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	App       AppConfig
	OpenMeteo OpenMeteoConfig
	Refresh   RefreshConfig
	Redis     RedisConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port        int
	GinMode     string   // debug, release, test
	CorsOrigins []string // empty disables CORS, "*" allows any origin
	RateLimit   float64  // requests per second per client IP, 0 disables
	RateBurst   int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	CountryCode    string        // default country filter for geocoding
	Language       string        // language tag sent to both APIs
	Timezone       string        // used when a location has no timezone of its own
	ForecastDays   int           // default forecast horizon
	CandidateLimit int           // max geocoding results per query
	RequestTimeout time.Duration // per outbound request
	Store          string        // record backend: file or redis
	DataDir        string        // base directory of the forecast records
	LockRecords    bool          // serialize updates of the same record in-process
	TimezoneLookup bool          // derive timezones from coordinates before falling back to Timezone
}

// OpenMeteoConfig holds upstream endpoints and requested variables
type OpenMeteoConfig struct {
	GeocodingURL string
	ForecastURL  string
	Current      []string
	Hourly       []string
	Daily        []string
}

// RefreshConfig controls the periodic refresh of tracked locations
type RefreshConfig struct {
	Enabled   bool
	Interval  time.Duration
	Locations []TrackedLocation
}

// TrackedLocation is a place refreshed on every tick. Either City or both
// coordinates must be set.
type TrackedLocation struct {
	City      string
	State     string
	County    string
	Latitude  *float64
	Longitude *float64
}

// RedisConfig is used when app.store is redis
type RedisConfig struct {
	URL       string // redis://[:password@]host:port/db
	KeyPrefix string
}

// Load reads configuration from .env, the config file and environment variables
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper(), "")
}

// LoadFrom reads configuration into v. An empty configFile searches the default locations.
func LoadFrom(v *viper.Viper, configFile string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.meteo-locator")
	}

	setDefaults(v)

	// Read from environment variables, e.g. METEO_APP_COUNTRYCODE
	v.SetEnvPrefix("METEO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ginmode", "release")
	v.SetDefault("server.corsOrigins", []string{})
	v.SetDefault("server.rateLimit", 0.0)
	v.SetDefault("server.rateBurst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("app.countryCode", "BR")
	v.SetDefault("app.language", "pt")
	v.SetDefault("app.timezone", "America/Sao_Paulo")
	v.SetDefault("app.forecastDays", 7)
	v.SetDefault("app.candidateLimit", 10)
	v.SetDefault("app.requestTimeout", 15*time.Second)
	v.SetDefault("app.store", StoreFile)
	v.SetDefault("app.dataDir", "meteo_data")
	v.SetDefault("app.lockRecords", false)
	v.SetDefault("app.timezoneLookup", false)

	v.SetDefault("openmeteo.geocodingURL", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("openmeteo.forecastURL", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("openmeteo.current", []string{
		"temperature_2m", "relative_humidity_2m", "apparent_temperature",
		"precipitation", "weather_code", "wind_speed_10m", "wind_direction_10m",
	})
	v.SetDefault("openmeteo.hourly", []string{
		"temperature_2m", "relative_humidity_2m", "precipitation", "wind_speed_10m",
	})
	v.SetDefault("openmeteo.daily", []string{
		"temperature_2m_max", "temperature_2m_min", "precipitation_sum",
		"wind_speed_10m_max", "sunrise", "sunset",
	})

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.keyPrefix", "meteo:record:")

	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.interval", time.Hour)
}

func (c *Config) validate() error {
	if c.App.ForecastDays < 1 || c.App.ForecastDays > 16 {
		return fmt.Errorf("app.forecastDays must be between 1 and 16, got %d", c.App.ForecastDays)
	}
	if c.App.CandidateLimit < 1 || c.App.CandidateLimit > 100 {
		return fmt.Errorf("app.candidateLimit must be between 1 and 100, got %d", c.App.CandidateLimit)
	}
	switch c.App.Store {
	case StoreFile:
		if c.App.DataDir == "" {
			return errors.New("app.dataDir must not be empty")
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url must not be empty")
		}
	default:
		return fmt.Errorf("app.store must be %q or %q, got %q", StoreFile, StoreRedis, c.App.Store)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rateBurst must be at least 1, got %d", c.Server.RateBurst)
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	return nil
}

// GetServerAddr returns the server address in the format ":port"
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// NewLogger creates a new slog.Logger based on the configuration
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger writing to w
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default: // "text" or anything else
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
