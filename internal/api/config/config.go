package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg globally accessible configuration
var Cfg *Config

// LoadConfig reads ./configs/config.yaml, applies POSTPILOT_* env overrides and fills Cfg
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("POSTPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 30)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.pool_size", 20)

	v.SetDefault("mongo.database", "postpilot")
	v.SetDefault("mongo.collection", "scheduler_jobs")

	v.SetDefault("llm.text_model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.8)
	v.SetDefault("llm.timeout", "12s")

	v.SetDefault("reddit.base_url", "https://www.reddit.com")
	v.SetDefault("reddit.user_agent", "postpilot/1.0 (content scheduler)")
	v.SetDefault("reddit.timeout", "10s")
	v.SetDefault("reddit.max_communities", 3)
	v.SetDefault("reddit.posts_per_source", 3)
	v.SetDefault("reddit.max_retries", 2)

	v.SetDefault("x.base_url", "https://api.twitter.com")
	v.SetDefault("x.token_url", "https://api.twitter.com/2/oauth2/token")
	v.SetDefault("x.timeout", "12s")

	v.SetDefault("kafka.event_topic", "post-events")

	v.SetDefault("scheduler.auto_start", true)
	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.process_every", "@every 1m")
	v.SetDefault("scheduler.lock_lifetime", "10m")
	v.SetDefault("scheduler.lease_ttl", "30m")
	v.SetDefault("scheduler.gateway_timeout", "12s")

	v.SetDefault("publisher.enabled", true)
	v.SetDefault("publisher.spec", "@every 1m")
	v.SetDefault("publisher.batch_size", 50)
	v.SetDefault("publisher.in_flight_lease", "10m")
	v.SetDefault("publisher.timeout", "12s")

	v.SetDefault("logstash.index", "logstash-postpilot")
}
