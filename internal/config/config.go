package config

import (
	"os"
	"strings"

	"codeberg.org/aulin/anesctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel  = "info"
	defaultHistoryDB = "/var/lib/anesctl/history.db"
)

// Config holds the runtime configuration of the workstation engine.
// Clinical thresholds are not configurable; they live in the clinical
// package and track the ISO 80601-2-13 reference values.
type Config struct {
	LogLevel     string `mapstructure:"log_level"`
	Listen       string `mapstructure:"listen"`
	History      bool   `mapstructure:"history"`
	HistoryDB    string `mapstructure:"history_db"`
	HypoxicGuard bool   `mapstructure:"hypoxic_guard"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("listen", "")
	v.SetDefault("history", false)
	v.SetDefault("history_db", defaultHistoryDB)
	v.SetDefault("hypoxic_guard", true)

	flags := pflag.NewFlagSet("anesctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("listen", "", "Address for the read-only HTTP view (empty disables)")
	flags.Bool("history", false, "Persist alarm history to the history database")
	flags.String("history-db", defaultHistoryDB, "Path to the alarm history database")
	flags.Bool("hypoxic-guard", true, "Enable the hypoxic guard interlock")
	if err := flags.Parse(os.Args[1:]); err != nil && !errors.Is(err, pflag.ErrHelp) {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Config file: explicit path via ANESCTL_CONFIG, otherwise the
	// usual locations. A missing file is not an error.
	if configPath := os.Getenv("ANESCTL_CONFIG"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("anesctl")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/anesctl")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").
				WithData(err.Error())
		}
	}

	// Command line flags win over file values
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warning", "error":
		return nil
	default:
		return errors.New().WithData(errors.ErrInvalidLogLevel, level)
	}
}
