package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const MinMetricsInterval = 5 * time.Second

var AppConfig Config

// InitConfig loads .env, an optional qlink.{toml,yaml} and QLINK_* environment
// variables into AppConfig and applies the logging settings.
func InitConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	cfg, err := Load(viper.GetViper())
	if err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}
	AppConfig = cfg

	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(AppConfig.LogLevel)
	if AppConfig.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.Infof("Init config, Input %s, Watch %v, MaxFragmentLen %d, HTTPEnabled %v, UnixSocket %q",
		AppConfig.Input, AppConfig.Watch, AppConfig.MaxFragmentLen, AppConfig.HTTPEnabled, AppConfig.UnixSocket)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CONFIG_FILE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("INPUT", "-")
	v.SetDefault("WATCH", true)
	v.SetDefault("OUTPUT_JSON", false)
	v.SetDefault("MAX_FRAGMENT_LEN", multipart.DefaultMaxFragmentLen)
	v.SetDefault("FRAME_DELAY", multipart.RecommendedFrameDelay.String())
	v.SetDefault("HTTP_ENABLED", true)
	v.SetDefault("BIND_ADDRESS", "127.0.0.1")
	v.SetDefault("BIND_PORT", "8080")
	v.SetDefault("API_TOKEN_SECRET", "")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("UNIX_SOCKET", "")
	v.SetDefault("DB_DIR", "/app/db")
	v.SetDefault("METRICS_ENABLED", false)
	v.SetDefault("METRICS_INTERVAL", "60s")
}

// Load reads configuration through v. Environment variables use the QLINK_
// prefix, e.g. QLINK_LOG_LEVEL.
func Load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("QLINK")
	v.AutomaticEnv()
	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return Config{}, err
	}

	logLevel, err := logrus.ParseLevel(strings.ToLower(v.GetString("LOG_LEVEL")))
	if err != nil {
		return Config{}, fmt.Errorf("invalid log level: %w", err)
	}

	logFormat := strings.ToLower(v.GetString("LOG_FORMAT"))
	if logFormat != "text" && logFormat != "json" {
		return Config{}, fmt.Errorf("invalid log format %q, expected text or json", logFormat)
	}

	maxFragmentLen := v.GetInt("MAX_FRAGMENT_LEN")
	if maxFragmentLen <= 0 {
		return Config{}, fmt.Errorf("max fragment length must be positive, got %d", maxFragmentLen)
	}

	metricsInterval := v.GetDuration("METRICS_INTERVAL")
	if metricsInterval < MinMetricsInterval {
		logrus.Warnf("Metrics interval %v is too low, set to %v", metricsInterval, MinMetricsInterval)
		metricsInterval = MinMetricsInterval
	}

	var origins []string
	for _, o := range strings.Split(v.GetString("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Config{
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		Input:           v.GetString("INPUT"),
		Watch:           v.GetBool("WATCH"),
		OutputJSON:      v.GetBool("OUTPUT_JSON"),
		MaxFragmentLen:  maxFragmentLen,
		FrameDelay:      v.GetDuration("FRAME_DELAY"),
		HTTPEnabled:     v.GetBool("HTTP_ENABLED"),
		BindAddress:     v.GetString("BIND_ADDRESS"),
		BindPort:        v.GetString("BIND_PORT"),
		APITokenSecret:  v.GetString("API_TOKEN_SECRET"),
		AllowedOrigins:  origins,
		UnixSocket:      v.GetString("UNIX_SOCKET"),
		DbDir:           v.GetString("DB_DIR"),
		MetricsEnabled:  v.GetBool("METRICS_ENABLED"),
		MetricsInterval: metricsInterval,
	}, nil
}

// readConfigFile reads QLINK_CONFIG_FILE when set, otherwise looks for
// qlink.toml or qlink.yaml in the working directory and the user config dir.
func readConfigFile(v *viper.Viper) error {
	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("qlink")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "qlink"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func (c Config) HTTPAddr() string {
	return c.BindAddress + ":" + c.BindPort
}

type Config struct {
	LogLevel        logrus.Level
	LogFormat       string
	Input           string
	Watch           bool
	OutputJSON      bool
	MaxFragmentLen  int
	FrameDelay      time.Duration
	HTTPEnabled     bool
	BindAddress     string
	BindPort        string
	APITokenSecret  string
	AllowedOrigins  []string
	UnixSocket      string
	DbDir           string
	MetricsEnabled  bool
	MetricsInterval time.Duration
}
