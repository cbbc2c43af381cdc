package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Queue          QueueConfig          `mapstructure:"queue"`
	NATS           NATSConfig           `mapstructure:"nats"`
	RabbitMQ       RabbitMQConfig       `mapstructure:"rabbitmq"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Vault          VaultConfig          `mapstructure:"vault"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Prometheus     PrometheusConfig     `mapstructure:"prometheus"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimiting   RateLimitingConfig   `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Recognition    RecognitionConfig    `mapstructure:"recognition"`
	Transactions   TransactionsConfig   `mapstructure:"transactions"`
	Billing        BillingConfig        `mapstructure:"billing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	BodyLimit      int           `mapstructure:"body_limit"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // bounds the context handed to services
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

// RedisConfig is optional. Without a URL the recognition cache is kept in
// memory and the sequence backend must be "database".
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type QueueConfig struct {
	Driver string `mapstructure:"driver"` // nats, rabbitmq or none
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// JWTConfig validates bearer tokens minted by the identity service. An
// empty secret leaves /api/v1 unauthenticated.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type VaultConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Mount   string `mapstructure:"mount"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
}

type JaegerConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	SamplerParam float64 `mapstructure:"sampler_param"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      int           `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
	Credentials    bool     `mapstructure:"credentials"`
}

type RecognitionConfig struct {
	TargetWidth      int             `mapstructure:"target_width"`
	JPEGQuality      int             `mapstructure:"jpeg_quality"`
	Providers        []string        `mapstructure:"providers"` // chain order
	ExtractionPolicy string          `mapstructure:"extraction_policy"`
	CacheTTL         time.Duration   `mapstructure:"cache_ttl"`
	Vision           ProviderConfig  `mapstructure:"vision"`
	OCR              ProviderConfig  `mapstructure:"ocr"`
	Heuristic        HeuristicConfig `mapstructure:"heuristic"`
	Breaker          ProviderBreaker `mapstructure:"breaker"`
}

type ProviderConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Prompt   string        `mapstructure:"prompt"`
	Language string        `mapstructure:"language"`
	Engine   string        `mapstructure:"engine"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HeuristicConfig struct {
	Enabled    bool      `mapstructure:"enabled"`
	Candidates []float64 `mapstructure:"candidates"`
}

// ProviderBreaker configures the circuit breaker in front of each HTTP
// provider.
type ProviderBreaker struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

type TransactionsConfig struct {
	Timezone             string  `mapstructure:"timezone"`
	SequenceBackend      string  `mapstructure:"sequence_backend"` // database or redis
	CalibrationTolerance float64 `mapstructure:"calibration_tolerance"`
}

// BillingConfig rates are keyed by material name. Viper lowercases keys, so
// "recycling metal" and "recycling_metal" both name Recycling Metal.
type BillingConfig struct {
	Currency string             `mapstructure:"currency"`
	Rates    map[string]float64 `mapstructure:"rates"`
}
