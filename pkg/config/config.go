package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Log struct {
		Level          string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format         string        `yaml:"format" default:"console" validate:"oneof=json console"`
		Output         string        `yaml:"output" default:"stdout"`
		CollectorTopic string        `yaml:"collector_topic"`
		CollectorFlush time.Duration `yaml:"collector_flush" default:"30s"`
	} `yaml:"log"`

	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		CORS            bool          `yaml:"cors" default:"true"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Engine Engine `yaml:"engine"`
	Fusion Fusion `yaml:"fusion"`

	Ingest struct {
		// Per-source token bucket for pushed insights; zero capacity disables throttling.
		BurstPerSource  float64 `yaml:"burst_per_source" default:"50" validate:"gte=0"`
		RefillPerSecond float64 `yaml:"refill_per_second" default:"20" validate:"gte=0"`
	} `yaml:"ingest"`

	Harvesters struct {
		HTTP []struct {
			Name string `yaml:"name" validate:"required"`
			URL  string `yaml:"url" validate:"required,url"`
		} `yaml:"http" validate:"dive"`
		Stream []struct {
			Name           string        `yaml:"name" validate:"required"`
			URL            string        `yaml:"url" validate:"required"`
			Subjects       []string      `yaml:"subjects"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
			PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
			BufferSize     int           `yaml:"buffer_size" default:"1024" validate:"gte=1"`
		} `yaml:"stream" validate:"dive"`
		Analytics struct {
			Enabled  bool     `yaml:"enabled"`
			Subjects []string `yaml:"subjects"`
			Bars     int      `yaml:"bars" default:"600" validate:"gte=2"`
			Interval string   `yaml:"interval" default:"1m" validate:"oneof=1s 1m 5m"`
			Horizon  string   `yaml:"horizon" default:"5m"`
		} `yaml:"analytics"`
	} `yaml:"harvesters"`

	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		SynthesisTopic string   `yaml:"synthesis_topic" default:"insighthub.synthesis"`
		FusedTopic     string   `yaml:"fused_topic" default:"insighthub.fused"`
		InsightsTopic  string   `yaml:"insights_topic"`
		Compression    string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		RequiredAcks   int      `yaml:"required_acks" default:"-1"`
		BufferSize     int      `yaml:"buffer_size" default:"4096" validate:"gte=1"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"insighthub"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"100" validate:"gte=1"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"insighthub"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"insighthub"`
		PoolSize     int           `yaml:"pool_size" default:"10" validate:"gte=1"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
		SynthesisTTL time.Duration `yaml:"synthesis_ttl" default:"5m"`
		QueueEnabled bool          `yaml:"queue_enabled"`
		QueueWorkers int           `yaml:"queue_workers" default:"2" validate:"gte=1"`
		QueueRetries int           `yaml:"queue_retries" default:"3"`
	} `yaml:"redis"`

	Analytics struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout" default:"3s"`
		Retries    int           `yaml:"retries" default:"3" validate:"gte=1"`
	} `yaml:"analytics"`
}

// Engine holds cycle periods and store bounds.
type Engine struct {
	HarvestPeriod  time.Duration `yaml:"harvest_period" default:"5s" validate:"gt=0"`
	FusePeriod     time.Duration `yaml:"fuse_period" default:"15s" validate:"gt=0"`
	EvictPeriod    time.Duration `yaml:"evict_period" default:"60s" validate:"gt=0"`
	HarvestTimeout time.Duration `yaml:"harvest_timeout" default:"3s" validate:"gt=0"`
	StoreCapacity  int           `yaml:"store_capacity" default:"5000" validate:"gte=1"`
	DefaultTTL     time.Duration `yaml:"default_ttl" default:"10m" validate:"gt=0"`
}

// Fusion holds every heuristic constant of correlation, fusion and synthesis.
// The defaults are the reference heuristics; none of them is derived from a model.
type Fusion struct {
	CorrelationThreshold  float64 `yaml:"correlation_threshold" default:"0.5" validate:"gte=0,lte=1"`
	TimeframeWeight       float64 `yaml:"timeframe_weight" default:"0.2" validate:"gte=0,lte=1"`
	SubjectOverlapStep    float64 `yaml:"subject_overlap_step" default:"0.1" validate:"gte=0,lte=1"`
	SubjectOverlapCap     float64 `yaml:"subject_overlap_cap" default:"0.4" validate:"gte=0,lte=1"`
	ConfidenceAlignment   float64 `yaml:"confidence_alignment" default:"0.3" validate:"gte=0,lte=1"`
	AuthenticityAlignment float64 `yaml:"authenticity_alignment" default:"0.1" validate:"gte=0,lte=1"`
	AuthenticityPenalty   float64 `yaml:"authenticity_penalty" default:"0.5" validate:"gte=0"`

	ConfidenceBoost    float64 `yaml:"confidence_boost" default:"1.2" validate:"gte=0"`
	PartnerWeight      float64 `yaml:"partner_weight" default:"0.3" validate:"gte=0"`
	ConfidenceCap      float64 `yaml:"confidence_cap" default:"0.98" validate:"gte=0,lte=1"`
	ActionabilityBoost float64 `yaml:"actionability_boost" default:"1.15" validate:"gte=0"`
	ActionabilityCap   float64 `yaml:"actionability_cap" default:"0.95" validate:"gte=0,lte=1"`
	MinAuthenticity    float64 `yaml:"min_authenticity" default:"0.7" validate:"gte=0,lte=1"`
	MinActionability   float64 `yaml:"min_actionability" default:"0.6" validate:"gte=0,lte=1"`

	RiskBase                float64 `yaml:"risk_base" default:"0.3" validate:"gte=0,lte=1"`
	RiskAnomalyStep         float64 `yaml:"risk_anomaly_step" default:"0.1" validate:"gte=0,lte=1"`
	RiskConflictWeight      float64 `yaml:"risk_conflict_weight" default:"0.15" validate:"gte=0,lte=1"`
	RiskAuthenticityDamping float64 `yaml:"risk_authenticity_damping" default:"0.3" validate:"gte=0,lte=1"`
	RiskFloor               float64 `yaml:"risk_floor" default:"0.05" validate:"gte=0,lte=1"`
	RiskCeiling             float64 `yaml:"risk_ceiling" default:"0.95" validate:"gte=0,lte=1,gtefield=RiskFloor"`
	ProfitCap               float64 `yaml:"profit_cap" default:"0.95" validate:"gte=0,lte=1"`
	PriorityCap             float64 `yaml:"priority_cap" default:"0.9" validate:"gte=0,lte=1"`
	AlignmentCap            float64 `yaml:"alignment_cap" default:"0.95" validate:"gte=0,lte=1"`
	AlignmentFloor          float64 `yaml:"alignment_floor" default:"0.2" validate:"gte=0,lte=1"`
	AlignmentSourceNorm     float64 `yaml:"alignment_source_norm" default:"4" validate:"gt=0"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file, fills unset fields from defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// second pass fills defaults inside list elements created by the decoder
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("INSIGHTHUB_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("INSIGHTHUB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("INSIGHTHUB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_SYNTHESIS_TOPIC"); v != "" {
		c.Kafka.SynthesisTopic = v
	}
	if v := os.Getenv("KAFKA_INSIGHTS_TOPIC"); v != "" {
		c.Kafka.InsightsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("ANALYTICS_SERVICE_URL"); v != "" {
		c.Analytics.ServiceURL = v
	}
}

// Validate checks struct tags plus cross-section rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Engine.HarvestPeriod > c.Engine.FusePeriod {
		return fmt.Errorf("engine.harvest_period (%s) must not exceed engine.fuse_period (%s)",
			c.Engine.HarvestPeriod, c.Engine.FusePeriod)
	}
	if c.Engine.FusePeriod > c.Engine.EvictPeriod {
		return fmt.Errorf("engine.fuse_period (%s) must not exceed engine.evict_period (%s)",
			c.Engine.FusePeriod, c.Engine.EvictPeriod)
	}
	if c.Kafka.InsightsTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka.insights_topic is set")
	}
	if c.Harvesters.Analytics.Enabled {
		if !c.ClickHouse.Enabled {
			return fmt.Errorf("harvesters.analytics requires clickhouse.enabled")
		}
		if c.Analytics.ServiceURL == "" {
			return fmt.Errorf("harvesters.analytics requires analytics.service_url")
		}
	}
	if c.Redis.QueueEnabled && !c.Redis.Enabled {
		return fmt.Errorf("redis.queue_enabled requires redis.enabled")
	}
	return nil
}

// KafkaEnabled reports whether a broker list is configured.
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }
