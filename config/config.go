package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode         string `mapstructure:"mode"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Auth struct {
		JWTSecret        string        `mapstructure:"jwtSecret"`
		JWTRefreshSecret string        `mapstructure:"jwtRefreshSecret"`
		AccessTokenTTL   time.Duration `mapstructure:"accessTokenTTL"`
		RefreshTokenTTL  time.Duration `mapstructure:"refreshTokenTTL"`
		Issuer           string        `mapstructure:"issuer"`
	} `mapstructure:"auth"`
	Gemini struct {
		Model       string        `mapstructure:"model"`
		Temperature float32       `mapstructure:"temperature"`
		CacheTTL    time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"gemini"`
	Metrics struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"metrics"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// File-based config paths, with the embedded copy as fallback
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("TRIPCREW")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}
