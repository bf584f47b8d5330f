// Package config loads the pool's runtime configuration from defaults, an
// optional YAML file, a local .env file and environment variables, in
// that order of increasing precedence, adapted from the teacher's
// viper-backed loader.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration object produced by Load.
type Config struct {
	Pool    PoolConfig
	Server  ServerConfig
	Auth    AuthConfig
	Metrics MetricsConfig
	LogLevel string
}

// PoolConfig carries every option named in spec.md §6.
type PoolConfig struct {
	Name                      string
	Size                      int
	WorkerHeartbeat           time.Duration // 0 disables the health monitor
	HeartbeatInitWindow       time.Duration
	WorkerInactivityThreshold time.Duration
	HeartbeatsMissLimit       int
	TaskRetriesLimit          int
	MaxActiveLoopSleep        time.Duration
	Runpath                   string
}

// ServerConfig configures the admin HTTP surface.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig configures the admin surface's JWT gate.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from (in increasing precedence) built-in
// defaults, ./taskpool.yaml, a local .env file, and TASKPOOL_-prefixed
// environment variables.
func Load() (*Config, error) {
	// A missing .env is not an error — mirrors the teacher's tolerant
	// viper.ReadInConfig handling for a missing config file.
	_ = godotenv.Load()

	viper.SetConfigName("taskpool")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/taskpool")

	setDefaults()

	viper.SetEnvPrefix("TASKPOOL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("pool.name", "default")
	viper.SetDefault("pool.size", 4)
	viper.SetDefault("pool.workerheartbeat", 0)
	viper.SetDefault("pool.heartbeatinitwindow", 1800*time.Second)
	viper.SetDefault("pool.workerinactivitythreshold", 300*time.Second)
	viper.SetDefault("pool.heartbeatsmisslimit", 3)
	viper.SetDefault("pool.taskretrieslimit", 3)
	viper.SetDefault("pool.maxactiveloopsleep", 5*time.Second)
	viper.SetDefault("pool.runpath", "./run")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.readtimeout", 15*time.Second)
	viper.SetDefault("server.writetimeout", 15*time.Second)
	viper.SetDefault("server.idletimeout", 60*time.Second)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("loglevel", "info")
}
