package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Auth      AuthConfig      `yaml:"auth"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Feed      FeedConfig      `yaml:"feed"`
	Geocoding GeocodingConfig `yaml:"geocoding"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// TokenTTLMinutes bounds dev-minted bearer tokens.
	TokenTTLMinutes int `yaml:"token_ttl_minutes"`
}

type TrackingConfig struct {
	// PublicBaseURL prefixes the confirmation and tracking links sent to
	// customers.
	PublicBaseURL string `yaml:"public_base_url"`
	// TokenOnly disables the order-number+email fallback on /track.
	TokenOnly            bool `yaml:"token_only"`
	PODTokenTTLMinutes   int  `yaml:"pod_token_ttl_minutes"`
	TrackTokenTTLMinutes int  `yaml:"track_token_ttl_minutes"`
}

type RateLimitConfig struct {
	PODMax        int `yaml:"pod_max"`
	WindowMinutes int `yaml:"window_minutes"`
}

type FeedConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type GeocodingConfig struct {
	// Provider is "nominatim" or "google".
	Provider        string `yaml:"provider"`
	APIKey          string `yaml:"api_key"`
	SweepSeconds    int    `yaml:"sweep_seconds"`
	BatchSize       int    `yaml:"batch_size"`
	StoreAddress    string `yaml:"store_address"`
	ShowStoreMarker bool   `yaml:"show_store_marker"`
}

type DeliveryConfig struct {
	// CompleteOrderOnDelivered forwards "completed" into the external
	// order status once the driver status reaches delivered.
	CompleteOrderOnDelivered bool `yaml:"complete_order_on_delivered"`
}

// Load reads the YAML config file, applies defaults, then environment
// overrides for the values that differ per deployment.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)

	cfg.RabbitMQ.Host = getEnv("RABBITMQ_HOST", cfg.RabbitMQ.Host)
	cfg.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", cfg.RabbitMQ.Port)
	cfg.RabbitMQ.User = getEnv("RABBITMQ_USER", cfg.RabbitMQ.User)
	cfg.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Geocoding.APIKey = getEnv("GEOCODING_API_KEY", cfg.Geocoding.APIKey)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTP:     HTTPConfig{Port: 3000},
		Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "dispatch", Password: "dispatch", Database: "dispatch"},
		RabbitMQ: RabbitMQConfig{Host: "localhost", Port: 5672, User: "guest", Password: "guest"},
		Auth:     AuthConfig{JWTSecret: "change-me", TokenTTLMinutes: 60},
		Tracking: TrackingConfig{
			PublicBaseURL:        "http://localhost:3000",
			PODTokenTTLMinutes:   6 * 60,
			TrackTokenTTLMinutes: 2 * 60,
		},
		RateLimit: RateLimitConfig{PODMax: 20, WindowMinutes: 10},
		Feed:      FeedConfig{CacheTTLSeconds: 10},
		Geocoding: GeocodingConfig{Provider: "nominatim", SweepSeconds: 300, BatchSize: 50, ShowStoreMarker: true},
	}
}

func (c *Config) PODTokenTTL() time.Duration {
	return time.Duration(c.Tracking.PODTokenTTLMinutes) * time.Minute
}

func (c *Config) TrackTokenTTL() time.Duration {
	return time.Duration(c.Tracking.TrackTokenTTLMinutes) * time.Minute
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}

func (c *Config) FeedCacheTTL() time.Duration {
	return time.Duration(c.Feed.CacheTTLSeconds) * time.Second
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}
