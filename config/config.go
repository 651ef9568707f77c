/*
config.go - Environment-driven configuration

PURPOSE:
  Reads server settings from environment variables or a local .env file
  using Viper. Every value has a working default so the server starts with
  no configuration at all.

VARIABLES:
  SERVER_PORT    HTTP listen port               (default: 8080)
  DATABASE_PATH  SQLite database file           (default: rent.db)
  AMQP_URL       RabbitMQ URL for notice events (default: empty = log only)
  SWEEP_CRON     Dunning sweep schedule         (default: @hourly)
  SWEEP_ENABLED  Whether the sweep runs         (default: true)

SEE ALSO:
  - cmd/server/main.go: Consumes the loaded config
*/
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	AMQPURL      string `mapstructure:"AMQP_URL"`
	SweepCron    string `mapstructure:"SWEEP_CRON"`
	SweepEnabled bool   `mapstructure:"SWEEP_ENABLED"`
}

// LoadConfig reads configuration from a .env file or environment variables.
func LoadConfig() (Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "rent.db")
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("SWEEP_CRON", "@hourly")
	viper.SetDefault("SWEEP_ENABLED", true)

	// Bind env vars explicitly
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_PATH")
	_ = viper.BindEnv("AMQP_URL")
	_ = viper.BindEnv("SWEEP_CRON")
	_ = viper.BindEnv("SWEEP_ENABLED")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
