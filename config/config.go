package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

// Config is built once at startup and passed by reference into the
// services and middleware. Nothing reads configuration after that.
type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey  string        `mapstructure:"secretKey"`
		TokenTTL   time.Duration `mapstructure:"tokenTTL"`
		Issuer     string        `mapstructure:"issuer"`
		CookieName string        `mapstructure:"cookieName"`
	} `mapstructure:"jwt"`
	Auth struct {
		BcryptCost    int           `mapstructure:"bcryptCost"`
		ResetTokenTTL time.Duration `mapstructure:"resetTokenTTL"`
	} `mapstructure:"auth"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			Password string `mapstructure:"password"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Email struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"email"`
}

// IsProduction reports whether the process runs in production mode.
// Controls cookie Secure flags and the log handler.
func (c *Config) IsProduction() bool {
	return c.Mode == "production"
}

// Validate rejects configurations the process cannot safely start with.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("jwt.secretKey is required (set WANDERTOURS_JWT_SECRETKEY)")
	}
	if c.JWT.TokenTTL <= 0 {
		return errors.New("jwt.tokenTTL must be positive")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		return errors.New("auth.resetTokenTTL must be positive")
	}
	return nil
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Secrets come from the environment, e.g. WANDERTOURS_JWT_SECRETKEY,
	// WANDERTOURS_REPOSITORIES_POSTGRES_PASSWORD, WANDERTOURS_EMAIL_PASSWORD.
	v.SetEnvPrefix("WANDERTOURS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
