package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int64
		Host string
	}

	Database struct {
		DSN string
	}

	Redis struct {
		Host     string
		Port     string
		User     string
		Password string
		DB       int
	}

	Solana struct {
		RPC string
	}

	BlockStorage struct {
		Host      string
		Region    string
		AccessKey string
		SecretKey string
		Bucket    string
	}

	Datadog struct {
		Host string
		Port string
	}

	Encryption struct {
		// scrypt work factors; zero values fall back to the defaults in
		// internal/crypto
		N int
		R int
		P int
	}
}

// ReadConfig loads the named config file from the working directory, with
// environment variable overrides.
func ReadConfig(configName string) (Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("Server.Port", 8080)
	viper.SetDefault("Server.Host", "0.0.0.0")
	viper.SetDefault("Redis.Host", "localhost")
	viper.SetDefault("Redis.Port", "6379")
	viper.SetDefault("Solana.RPC", "https://api.mainnet-beta.solana.com")

	if err := viper.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("fail to read config file, err: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("fail to unmarshal config, err: %w", err)
	}
	return cfg, nil
}
