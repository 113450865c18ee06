// Package config layers defaults, a YAML file, a .env file, the environment and flags into Config.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ipril-bot/internal/backup"
	"ipril-bot/internal/correction"
	"ipril-bot/internal/logutil"
)

const EnvPrefix = "IPRIL"

var ErrInvalidConfig = errors.New("invalid config")

type Telegram struct {
	Token   string
	Debug   bool
	Workers int
}

type Correction struct {
	ApiKey        string
	BaseURL       string
	Model         string
	ProxyURL      *url.URL
	Timeout       time.Duration
	LabelMode     correction.LabelMode
	HistoryWindow int
	HistoryIdle   time.Duration
	GlobalLimit   int
}

type RateLimit struct {
	Count  int
	Window time.Duration
}

type Storage struct {
	DataFile string
}

type Backup struct {
	Enabled bool
	Dir     string
	Time    string
}

type Metrics struct {
	Addr string
}

type Config struct {
	Telegram   Telegram
	Correction Correction
	RateLimit  RateLimit
	Storage    Storage
	Backup     Backup
	Metrics    Metrics
	Logging    logutil.Config
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.workers", 4)

	v.SetDefault("correction.base_url", correction.DefaultBaseURL)
	v.SetDefault("correction.model", correction.DefaultModel)
	v.SetDefault("correction.timeout", correction.DefaultTimeout)
	v.SetDefault("correction.label_mode", string(correction.LabelLocalized))
	v.SetDefault("correction.history_window", 10)
	v.SetDefault("correction.history_idle", 24*time.Hour)
	v.SetDefault("correction.global_limit", 0)

	v.SetDefault("rate_limit.count", 15)
	v.SetDefault("rate_limit.window", 60*time.Second)

	v.SetDefault("storage.data_file", "user_data.json")

	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.time", "03:00")

	v.SetDefault("metrics.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
}

// BindEnv maps IPRIL_SECTION_KEY variables onto section.key and keeps the
// historical BOT_TOKEN / TG_TOKEN / DEEPSEEK_API_KEY names working.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telegram.token", EnvPrefix+"_TELEGRAM_TOKEN", "BOT_TOKEN", "TG_TOKEN")
	_ = v.BindEnv("correction.api_key", EnvPrefix+"_CORRECTION_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_KEY")
}

// LoadDotEnv exports variables from path that are not already set. A missing file is fine.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadFile merges a YAML (or any viper supported) config file. Empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// FromViper builds and validates Config.
func FromViper(v *viper.Viper) (Config, error) {
	labelMode, err := correction.ParseLabelMode(v.GetString("correction.label_mode"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var proxy *url.URL
	if raw := strings.TrimSpace(v.GetString("correction.proxy_url")); raw != "" {
		proxy, err = url.Parse(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: correction.proxy_url: %w", ErrInvalidConfig, err)
		}
	}

	cfg := Config{
		Telegram: Telegram{
			Token:   strings.TrimSpace(v.GetString("telegram.token")),
			Debug:   v.GetBool("telegram.debug"),
			Workers: v.GetInt("telegram.workers"),
		},
		Correction: Correction{
			ApiKey:        strings.TrimSpace(v.GetString("correction.api_key")),
			BaseURL:       v.GetString("correction.base_url"),
			Model:         v.GetString("correction.model"),
			ProxyURL:      proxy,
			Timeout:       v.GetDuration("correction.timeout"),
			LabelMode:     labelMode,
			HistoryWindow: v.GetInt("correction.history_window"),
			HistoryIdle:   v.GetDuration("correction.history_idle"),
			GlobalLimit:   v.GetInt("correction.global_limit"),
		},
		RateLimit: RateLimit{
			Count:  v.GetInt("rate_limit.count"),
			Window: durationOrSeconds(v, "rate_limit.window"),
		},
		Storage: Storage{
			DataFile: v.GetString("storage.data_file"),
		},
		Backup: Backup{
			Enabled: v.GetBool("backup.enabled"),
			Dir:     v.GetString("backup.dir"),
			Time:    v.GetString("backup.time"),
		},
		Metrics: Metrics{
			Addr: v.GetString("metrics.addr"),
		},
		Logging: logutil.Config{
			Level:     v.GetString("logging.level"),
			Format:    v.GetString("logging.format"),
			AddSource: v.GetBool("logging.add_source"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks everything except credentials.
func (c Config) Validate() error {
	var errs []error
	if c.RateLimit.Count <= 0 {
		errs = append(errs, errors.New("rate_limit.count must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.Correction.Timeout <= 0 {
		errs = append(errs, errors.New("correction.timeout must be positive"))
	}
	if c.Correction.HistoryWindow < 0 {
		errs = append(errs, errors.New("correction.history_window must not be negative"))
	}
	if c.Correction.HistoryIdle < 0 {
		errs = append(errs, errors.New("correction.history_idle must not be negative"))
	}
	if c.Telegram.Workers <= 0 {
		errs = append(errs, errors.New("telegram.workers must be positive"))
	}
	if c.Storage.DataFile == "" {
		errs = append(errs, errors.New("storage.data_file is required"))
	}
	if _, _, err := backup.ParseClock(c.Backup.Time); err != nil {
		errs = append(errs, fmt.Errorf("backup.time: %w", err))
	}
	if _, err := logutil.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RequireCredentials is checked only by commands that talk to Telegram and the service.
func (c Config) RequireCredentials() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token (BOT_TOKEN)")
	}
	if c.Correction.ApiKey == "" {
		missing = append(missing, "correction.api_key (DEEPSEEK_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// durationOrSeconds accepts both "90s" and a bare number of seconds.
func durationOrSeconds(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw != "" && strings.Trim(raw, "0123456789") == "" {
		return time.Duration(v.GetInt(key)) * time.Second
	}
	return v.GetDuration(key)
}
