package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/obdmon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	// Clamp ranges for the cloud-settable engine parameters
	MaxIdleRPM          = 10000
	MaxIdleSpeed        = 300
	MaxFastPublishMilli = 3600000
)

type Config struct {
	LogLevel        string `mapstructure:"log_level"`
	Interface       string `mapstructure:"interface"`
	Bitrate         int    `mapstructure:"bitrate"`
	RequestPeriod   int    `mapstructure:"request_period"`
	EngineLogPeriod int    `mapstructure:"engine_log_period"`
	IdleRPM         int    `mapstructure:"idle_rpm"`
	IdleSpeed       int    `mapstructure:"idle_speed"`
	FastPublish     int    `mapstructure:"fastpub"`
	PublishPeriod   int    `mapstructure:"publish_period"`
	Broker          string `mapstructure:"broker"`
	ClientID        string `mapstructure:"client_id"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	Archive         bool   `mapstructure:"archive"`
	ArchiveDB       string `mapstructure:"archive_db"`
	KeyInPin        string `mapstructure:"keyin_gpio"`
	DisableSleep    bool   `mapstructure:"disable_sleep"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("interface", "can0")
	v.SetDefault("bitrate", 500000)
	v.SetDefault("request_period", 100)
	v.SetDefault("engine_log_period", 2000)
	v.SetDefault("idle_rpm", 1600)
	v.SetDefault("idle_speed", 10)
	v.SetDefault("fastpub", 60000)
	v.SetDefault("publish_period", 600000)
	v.SetDefault("broker", "tcp://localhost:1883")
	v.SetDefault("client_id", "obdmon")
	v.SetDefault("topic_prefix", "obdmon")
	v.SetDefault("archive", false)
	v.SetDefault("archive_db", "/var/lib/obdmon/telemetry.db")
	v.SetDefault("keyin_gpio", "/sys/class/gpio/gpio9/value")
	v.SetDefault("disable_sleep", false)

	flags := pflag.NewFlagSet("obdmon", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.String("interface", "", "CAN interface name")
	flags.String("broker", "", "MQTT broker URL")
	flags.Int("idle-rpm", 0, "Idle RPM threshold")
	flags.Int("idle-speed", 0, "Idle speed threshold (km/h)")
	flags.Int("fastpub", 0, "Fast publish period in milliseconds (0 disables)")
	flags.Bool("archive", false, "Archive published snapshots to the local database")
	flags.Bool("disable-sleep", false, "Never suspend device sleep")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errors.Wrap(errors.ErrBindFlags, err)
	}

	// Load configuration from file; OBDMON_CONFIG overrides the default path
	if configPath := os.Getenv("OBDMON_CONFIG"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("obdmon")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	v.SetEnvPrefix("OBDMON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Command line flags win over file and environment
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errors.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Interface == "" {
		return errors.WithMessage(errors.ErrInvalidConfig, "CAN interface must be set")
	}
	if c.Bitrate <= 0 {
		return errors.WithData(errors.ErrInvalidConfig, c.Bitrate)
	}
	if c.RequestPeriod <= 0 {
		return errors.WithMessage(errors.ErrInvalidConfig, "request_period must be positive")
	}
	if c.EngineLogPeriod < 0 {
		return errors.WithMessage(errors.ErrInvalidConfig, "engine_log_period must not be negative")
	}
	if c.IdleRPM < 0 || c.IdleRPM > MaxIdleRPM {
		return errors.WithData(errors.ErrInvalidConfig, c.IdleRPM)
	}
	if c.IdleSpeed < 0 || c.IdleSpeed > MaxIdleSpeed {
		return errors.WithData(errors.ErrInvalidConfig, c.IdleSpeed)
	}
	if c.FastPublish < 0 || c.FastPublish > MaxFastPublishMilli {
		return errors.WithData(errors.ErrInvalidConfig, c.FastPublish)
	}
	if c.PublishPeriod < 0 {
		return errors.WithMessage(errors.ErrInvalidConfig, "publish_period must not be negative")
	}
	if c.Archive && c.ArchiveDB == "" {
		return errors.WithMessage(errors.ErrInvalidConfig, "archive_db must be set when archiving is enabled")
	}

	return nil
}
