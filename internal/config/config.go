package config

import (
	"log"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/config"
)

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	Gmail  config.GmailConfig  `yaml:"gmail"`
	Sync   config.SyncConfig   `yaml:"sync"`
}

// Load reads the layered config and applies env-var overrides.
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideGmailFromEnv(&cfg.Gmail)

	applySyncDefaults(&cfg.Sync)

	return &cfg
}

func applySyncDefaults(s *config.SyncConfig) {
	if s.QueryWindowDays <= 0 {
		s.QueryWindowDays = 30
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 50
	}
	if s.LockTTLSeconds <= 0 {
		s.LockTTLSeconds = 300
	}
	if s.EmailTimeoutSeconds <= 0 {
		s.EmailTimeoutSeconds = 10
	}
	if s.IntervalMinutes <= 0 {
		s.IntervalMinutes = 60
	}
}
