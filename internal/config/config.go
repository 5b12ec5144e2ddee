package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            int           `mapstructure:"port"`
	LogConfig       LogConfig     `mapstructure:"log_config"`
	Engine          EngineConfig  `mapstructure:"engine"`
	Ingest          IngestConfig  `mapstructure:"ingest"`
	Search          SearchConfig  `mapstructure:"search"`
	Catalog         CatalogConfig `mapstructure:"catalog"`
	CORS            []string      `mapstructure:"cors"`
	UploadInterval  time.Duration `mapstructure:"upload_interval"`
	HealthCheckSpec string        `mapstructure:"health_check_spec"`
}

type LogConfig struct {
	File      string `mapstructure:"file"`
	Level     string `mapstructure:"level"`
	FileCount uint64 `mapstructure:"file_count"`
	FileSize  uint64 `mapstructure:"file_size"`
	KeepDays  uint64 `mapstructure:"keep_days"`
	Console   bool   `mapstructure:"console"`
}

// EngineConfig selects a registered engine; Data is handed to its factory.
type EngineConfig struct {
	Type string                 `mapstructure:"type"`
	Data map[string]interface{} `mapstructure:"data"`
}

type IngestConfig struct {
	BatchSize        int   `mapstructure:"batch_size"`
	SampleSize       int   `mapstructure:"sample_size"`
	MaxDocumentBytes int   `mapstructure:"max_document_bytes"`
	MaxUploadBytes   int64 `mapstructure:"max_upload_bytes"`
	ReplaceExisting  bool  `mapstructure:"replace_existing"`
}

type SearchConfig struct {
	DefaultSize     int  `mapstructure:"default_size"`
	MaxSize         int  `mapstructure:"max_size"`
	AggregationSize int  `mapstructure:"aggregation_size"`
	Highlight       bool `mapstructure:"highlight"`
}

type CatalogConfig struct {
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

const envPrefix = "CSVSEARCH"

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8000)
	v.SetDefault("log_config.level", "info")
	v.SetDefault("log_config.console", true)
	v.SetDefault("engine.type", "bleve")
	v.SetDefault("ingest.batch_size", 500)
	v.SetDefault("ingest.sample_size", 100)
	v.SetDefault("ingest.max_document_bytes", 1<<20)
	v.SetDefault("ingest.max_upload_bytes", int64(50<<20))
	v.SetDefault("ingest.replace_existing", false)
	v.SetDefault("search.default_size", 10)
	v.SetDefault("search.max_size", 100)
	v.SetDefault("search.aggregation_size", 10)
	v.SetDefault("search.highlight", true)
	v.SetDefault("catalog.cache_size", 256)
	v.SetDefault("catalog.cache_ttl", time.Minute)
	v.SetDefault("cors", []string{})
	v.SetDefault("upload_interval", time.Duration(0))
	v.SetDefault("health_check_spec", "*/1 * * * *")
}

// Load reads the JSON config at path, or only defaults and environment when
// path is empty. CSVSEARCH_<KEY> overrides any key, and ELASTICSEARCH_HOST
// and ELASTICSEARCH_PORT fill the elasticsearch engine address.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("engine.data.host", "ELASTICSEARCH_HOST")
	_ = v.BindEnv("engine.data.port", "ELASTICSEARCH_PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535")
	}
	c.Engine.Type = strings.ToLower(strings.TrimSpace(c.Engine.Type))
	if c.Engine.Type == "" {
		return fmt.Errorf("engine.type is required")
	}
	if c.Ingest.BatchSize <= 0 {
		return fmt.Errorf("ingest.batch_size must be > 0")
	}
	if c.Ingest.SampleSize <= 0 {
		return fmt.Errorf("ingest.sample_size must be > 0")
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		return fmt.Errorf("ingest.max_document_bytes must be > 0")
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_upload_bytes must be > 0")
	}
	if c.Search.MaxSize <= 0 {
		return fmt.Errorf("search.max_size must be > 0")
	}
	if c.Search.DefaultSize <= 0 || c.Search.DefaultSize > c.Search.MaxSize {
		return fmt.Errorf("search.default_size must be in 1..search.max_size")
	}
	if c.Search.AggregationSize <= 0 {
		return fmt.Errorf("search.aggregation_size must be > 0")
	}
	if c.Catalog.CacheSize <= 0 {
		return fmt.Errorf("catalog.cache_size must be > 0")
	}
	if c.UploadInterval < 0 {
		return fmt.Errorf("upload_interval must be >= 0")
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	return nil
}
