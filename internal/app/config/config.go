package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type AppConfig struct {
	Port  int    `mapstructure:"port"`
	Host  string `mapstructure:"host"`
	Title string `mapstructure:"title"`
}

type UpstreamConfig struct {
	BaseURL    string `mapstructure:"baseURL"`
	UsersPath  string `mapstructure:"usersPath"`
	TimeoutSec int    `mapstructure:"timeoutSec"`
}

type ServerConfig struct {
	ReadTimeoutS    int           `mapstructure:"readTimeoutSec"`
	WriteTimeoutS   int           `mapstructure:"writeTimeoutSec"`
	IdleTimeoutS    int           `mapstructure:"idleTimeoutSec"`
	RequestTimeoutS int           `mapstructure:"requestTimeoutSec"`
	Headers         HeadersConfig `mapstructure:"headers"`
}

type HeadersConfig struct {
	Add      map[string]string `mapstructure:"add"`
	Remove   []string          `mapstructure:"remove"`
	Override map[string]string `mapstructure:"override"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from defaults, an optional .env file, the config
// file and SHIPBOARD_* environment variables, in increasing precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shipboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/shipboard")
	}

	v.SetEnvPrefix("SHIPBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if envPath := os.Getenv("SHIPBOARD_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading env config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of an env file without overriding ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error reading %s: %w", path, err)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.title", "Shipwrecked Users")

	v.SetDefault("upstream.baseURL", "https://shipwrecked.hackclub.com")
	v.SetDefault("upstream.usersPath", "/api/users")
	v.SetDefault("upstream.timeoutSec", 30)

	v.SetDefault("server.readTimeoutSec", 15)
	v.SetDefault("server.writeTimeoutSec", 75)
	v.SetDefault("server.idleTimeoutSec", 60)
	v.SetDefault("server.requestTimeoutSec", 60)
	v.SetDefault("server.headers.add", map[string]string{})
	v.SetDefault("server.headers.remove", []string{})
	v.SetDefault("server.headers.override", map[string]string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("invalid app.port %d", c.App.Port)
	}
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.baseURL is required")
	}
	if c.Upstream.TimeoutSec < 0 {
		return fmt.Errorf("invalid upstream.timeoutSec %d", c.Upstream.TimeoutSec)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSec) * time.Second
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutS) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutS) * time.Second
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Server.IdleTimeoutS) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutS) * time.Second
}
