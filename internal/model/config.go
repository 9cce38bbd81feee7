package model

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config is the complete clausescan configuration
type Config struct {
	Extraction   ExtractionConfig   `yaml:"extraction" mapstructure:"extraction"`
	Catalog      CatalogConfig      `yaml:"catalog" mapstructure:"catalog"`
	Matching     MatchingConfig     `yaml:"matching" mapstructure:"matching"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Sinks        SinksConfig        `yaml:"sinks" mapstructure:"sinks"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
}

// ExtractionConfig controls text extraction and the OCR fallback
type ExtractionConfig struct {
	OCRThreshold int      `yaml:"ocr_threshold" mapstructure:"ocr_threshold"` // Fall back to OCR below this many characters
	OCRLanguages []string `yaml:"ocr_languages" mapstructure:"ocr_languages"` // Tesseract language codes
	OCREnabled   bool     `yaml:"ocr_enabled" mapstructure:"ocr_enabled"`
	MaxFileBytes int64    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
}

// CatalogConfig points at an optional clause catalog file
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty means the built-in catalog
}

// MatchingConfig controls matcher policy
type MatchingConfig struct {
	SuppressCoveredSentences bool `yaml:"suppress_covered_sentences" mapstructure:"suppress_covered_sentences"`
	SortByPage               bool `yaml:"sort_by_page" mapstructure:"sort_by_page"`
}

// CacheConfig controls the extraction cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"` // Non-empty replaces the disk layer with Redis
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// HTTPConfig controls fetching remote documents
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// ConcurrencyConfig controls batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig controls per-host fetch rates in batch mode
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose         bool   `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter   bool   `yaml:"include_footer" mapstructure:"include_footer"`
	HighlightPrefix string `yaml:"highlight_prefix" mapstructure:"highlight_prefix"`
}

// ServerConfig controls the HTTP upload server
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ResultTTL    time.Duration `yaml:"result_ttl" mapstructure:"result_ttl"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// SinksConfig holds optional destinations for results
type SinksConfig struct {
	MinIO MinIOConfig `yaml:"minio" mapstructure:"minio"`
	Kafka KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
}

// MinIOConfig configures the artifact store
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"` // Empty disables the sink
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL          bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// KafkaConfig configures the report publisher
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"` // Empty disables the sink
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// LLMConfig configures the optional summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "" disables, "openai"
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	Strict    bool   `yaml:"strict" mapstructure:"strict"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			OCRThreshold: 100,
			OCRLanguages: []string{"eng", "tur"},
			OCREnabled:   true,
			MaxFileBytes: 50 << 20,
		},
		Matching: MatchingConfig{
			SuppressCoveredSentences: true,
			SortByPage:               true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskDir:   defaultCacheDir(),
			DiskTTL:   7 * 24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       2 * time.Minute,
			UserAgent:     "clausescan/0.1 (+https://github.com/ppiankov/clausescan)",
			MaxBodyBytes:  50 << 20,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Output: OutputConfig{
			IncludeFooter:   true,
			HighlightPrefix: "highlighted_",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ResultTTL:    time.Hour,
			ReadTimeout:  2 * time.Minute,
			WriteTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Sinks: SinksConfig{
			MinIO: MinIOConfig{Bucket: "clausescan"},
			Kafka: KafkaConfig{Topic: "clausescan.reports"},
		},
		LLM: LLMConfig{
			Timeout:   30,
			Strict:    true,
			MaxTokens: 1000,
		},
	}
}

// defaultCacheDir returns the per-user cache location, falling back to a
// directory relative to the working directory
func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".clausescan", "cache")
	}
	return filepath.Join(dir, "clausescan")
}
