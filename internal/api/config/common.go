package config

import "time"

// Config root of the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Reddit    RedditConfig    `mapstructure:"reddit"`
	X         XConfig         `mapstructure:"x"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
	JWT       JWTConfig       `mapstructure:"jwt"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MongoConfig backs the durable job queue. An empty URL selects the in-memory store.
type MongoConfig struct {
	URL        string `mapstructure:"url"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LLMConfig struct {
	URL         string        `mapstructure:"url"`
	TextModel   string        `mapstructure:"text_model"`
	ApiKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedditConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxCommunities int           `mapstructure:"max_communities"`
	PostsPerSource int           `mapstructure:"posts_per_source"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

type XConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers    []string   `mapstructure:"brokers"`
	Sasl       SaslConfig `mapstructure:"sasl"`
	EventTopic string     `mapstructure:"event_topic"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SchedulerConfig drives the recurring content generation job
type SchedulerConfig struct {
	AutoStart      bool          `mapstructure:"auto_start"`
	Interval       time.Duration `mapstructure:"interval"`
	ProcessEvery   string        `mapstructure:"process_every"`
	LockLifetime   time.Duration `mapstructure:"lock_lifetime"`
	LeaseTTL       time.Duration `mapstructure:"lease_ttl"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
}

// PublisherConfig drives the due-post sweeper
type PublisherConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Spec          string        `mapstructure:"spec"`
	BatchSize     int           `mapstructure:"batch_size"`
	InFlightLease time.Duration `mapstructure:"in_flight_lease"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}
