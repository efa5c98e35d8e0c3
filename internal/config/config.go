package config

import (
	"flag"
	"os"
	"time"

	"habitarc/internal/ratelimit"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	DSN       string          `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP      HTTPConfig      `yaml:"http"`
	JWT       JWTConfig       `yaml:"jwt"`
	Demo      DemoConfig      `yaml:"demo"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConf       `yaml:"redis"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"8080"`
}

type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	AccessTTL  time.Duration `yaml:"access_ttl" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env-default:"168h"`
}

type DemoConfig struct {
	Enabled bool          `yaml:"enabled" env:"TRY_ME_ENABLED" env-default:"false"`
	TTL     time.Duration `yaml:"ttl" env-default:"30m"`
}

type RateLimitConfig struct {
	Auth ratelimit.Policy `yaml:"auth"`
	Demo ratelimit.Policy `yaml:"demo"`
}

// RedisConf is optional: with an empty addr the in-memory limiter is used.
type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env-default:"0"`
}

type CleanupConfig struct {
	Interval time.Duration `yaml:"interval" env-default:"1h"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
