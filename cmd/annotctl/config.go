package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	annot "github.com/goliatone/go-annotations"
)

// Config is the annotctl configuration. Values come from flags, ANNOTCTL_*
// environment variables and an optional annotctl.yaml, in that order.
type Config struct {
	Catalog  string `mapstructure:"catalog"`
	Selector string `mapstructure:"selector"`
	Engine   string `mapstructure:"engine"`
	Verbose  bool   `mapstructure:"verbose"`
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	v.SetDefault("catalog", "annotations.yaml")
	v.SetDefault("selector", "nearest_and_oldest")
	v.SetDefault("engine", annot.PredicateExpr)
	v.SetDefault("verbose", false)

	v.SetConfigName("annotctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ANNOTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"catalog", "selector", "engine", "verbose"} {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(name, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, ok := annot.ParseSelector(config.Selector); !ok {
		return nil, fmt.Errorf("unknown selector %q", config.Selector)
	}
	return &config, nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
