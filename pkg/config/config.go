package config

import (
	"os"
	"strconv"
)

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig holds the RabbitMQ connection URL.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds the token verification secret.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig holds the HTTP listen settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// GmailConfig holds mail-access settings. Tokens are read from TokenDir,
// one file per user; acquisition and refresh happen elsewhere.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenDir        string `yaml:"token_dir"`
}

// SyncConfig holds the reconciliation pass knobs.
type SyncConfig struct {
	QueryWindowDays     int `yaml:"query_window_days"`
	MaxResults          int `yaml:"max_results"`
	LockTTLSeconds      int `yaml:"lock_ttl_seconds"`
	EmailTimeoutSeconds int `yaml:"email_timeout_seconds"`
	IntervalMinutes     int `yaml:"interval_minutes"`
}

// OverrideDBFromEnv applies DB_* environment variables on top of the file config.
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv applies MQ_URL on top of the file config.
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_* environment variables.
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv applies JWT_SECRET.
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv applies SERVER_PORT.
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideGmailFromEnv applies GMAIL_* environment variables.
func OverrideGmailFromEnv(cfg *GmailConfig) {
	if creds := os.Getenv("GMAIL_CREDENTIALS_FILE"); creds != "" {
		cfg.CredentialsFile = creds
	}
	if dir := os.Getenv("GMAIL_TOKEN_DIR"); dir != "" {
		cfg.TokenDir = dir
	}
}
