package config

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

// ClientConfig holds the connection settings shared by the sender and receiver
type ClientConfig struct {
	Host              string        `mapstructure:"host"`
	Port              string        `mapstructure:"port"`
	DialTimeout       time.Duration `mapstructure:"dial_timeout"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"` // idle time before a PING is sent
	MaxLength         int           `mapstructure:"max_length"`         // longest accepted line or bulk string, bytes
}

// Addr returns host:port
func (c ClientConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("MOONSUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	// Client
	v.SetDefault("client.host", "127.0.0.1")
	v.SetDefault("client.port", "6379")
	v.SetDefault("client.dial_timeout", "5s")
	v.SetDefault("client.keepalive_interval", "10s")
	v.SetDefault("client.max_length", 512_000_000)

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
