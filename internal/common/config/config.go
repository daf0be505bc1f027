package config

import "fmt"

type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Server         ServerConfig            `mapstructure:"server"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Auth           AuthConfig              `mapstructure:"auth"`
	Matching       MatchingConfig          `mapstructure:"matching"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Analytics      AnalyticsConfig         `mapstructure:"analytics"`
	DegradedMode   DegradedModeConfig      `mapstructure:"degraded_mode"`
	Notifications  NotificationConfig      `mapstructure:"notifications"`
	Observability  ObservabilityConfig     `mapstructure:"observability"`
	Logging        LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	RequestTimeout  int      `mapstructure:"request_timeout"`  // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
}

// CamundaConfig is optional; job workers start only when BrokerAddress is set.
type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	CatalogIndex  string   `mapstructure:"catalog_index"`
	CatalogSize   int      `mapstructure:"catalog_size"`
	SearchTimeout int      `mapstructure:"search_timeout"` // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// AuthConfig controls bearer token validation on the HTTP surface.
// Enabled=false is meant for local development only.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
	AdminRole string `mapstructure:"admin_role"`
}

type ScoreWeights struct {
	Industry     float64 `mapstructure:"industry"`
	Location     float64 `mapstructure:"location"`
	Budget       float64 `mapstructure:"budget"`
	Requirements float64 `mapstructure:"requirements"`
}

func (w ScoreWeights) Sum() float64 {
	return w.Industry + w.Location + w.Budget + w.Requirements
}

type MatchingConfig struct {
	TopN            int          `mapstructure:"top_n"`
	Weights         ScoreWeights `mapstructure:"weights"`
	CatalogSource   string       `mapstructure:"catalog_source"` // postgres | elasticsearch
	CatalogCacheTTL int          `mapstructure:"catalog_cache_ttl"` // milliseconds
	NeedsCacheTTL   int          `mapstructure:"needs_cache_ttl"`   // milliseconds
}

type OracleConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type BreakerConfig struct {
	MaxRequests  uint32  `mapstructure:"max_requests"`
	Interval     int     `mapstructure:"interval"` // milliseconds
	OpenTimeout  int     `mapstructure:"open_timeout"` // milliseconds
	MinRequests  uint32  `mapstructure:"min_requests"`
	FailureRatio float64 `mapstructure:"failure_ratio"`
}

type RecommendationConfig struct {
	MaxItems             int           `mapstructure:"max_items"`
	HistoryLimit         int           `mapstructure:"history_limit"`
	HistoryHalfLifeHours int           `mapstructure:"history_half_life_hours"`
	HistoryWeight        float64       `mapstructure:"history_weight"`
	Oracle               OracleConfig  `mapstructure:"oracle"`
	Breaker              BreakerConfig `mapstructure:"breaker"`
}

type AnalyticsConfig struct {
	HistoryLimit  int      `mapstructure:"history_limit"`
	TopCategories []string `mapstructure:"top_categories"`
	TopK          int      `mapstructure:"top_k"`
	Advice        []string `mapstructure:"advice"`
}

type DegradedModeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
