package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	DatabaseURL     string        `mapstructure:"database_url" validate:"required"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" validate:"min=1,dive,required"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=console json"`
	ReadLimit       int64         `mapstructure:"read_limit" validate:"min=512"`
	SendBuffer      int           `mapstructure:"send_buffer" validate:"min=1"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	CommitTimeout   time.Duration `mapstructure:"commit_timeout" validate:"gt=0"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"min=1"`
	RateWindow      time.Duration `mapstructure:"rate_window" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("database_url", "")
	v.SetDefault("migrate_on_start", false)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 64)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("commit_timeout", "10s")
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_window", "1s")
	v.SetDefault("shutdown_timeout", "30s")
}

// RegisterFlags declares the command-line overrides understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.Bool("migrate", false, "apply database migrations on start")
	fs.String("log-level", "info", "trace, debug, info, warn or error")
	fs.String("log-format", "console", "console or json")
}

var flagKeys = map[string]string{
	"port":         "port",
	"database-url": "database_url",
	"migrate":      "migrate_on_start",
	"log-level":    "log_level",
	"log-format":   "log_format",
}

// Load resolves configuration from, in increasing priority: defaults, the
// YAML file, environment variables (a .env file is loaded first) and
// explicitly set flags. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
