package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WatchConfig configures the watch (live subscription) command.
type WatchConfig struct {
	Common
	Address      string
	Events       []string
	Filter       map[string]string
	PollInterval time.Duration
	MaxFailures  int
	Out          string
	KafkaBrokers []string
	KafkaTopic   string
	KeepRaw      bool
	MetricsAddr  string
}

// LoadWatch merges config file, environment variables, and flags into WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("poll-interval", 4*time.Second)
		v.SetDefault("max-failures", 5)
		v.SetDefault("kafka-topic", "contract_events")
	})
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		Common:       loadCommon(v),
		Address:      v.GetString("address"),
		Events:       getStringSlice(v, "event"),
		Filter:       getStringMap(v, "filter"),
		PollInterval: v.GetDuration("poll-interval"),
		MaxFailures:  v.GetInt("max-failures"),
		Out:          v.GetString("out"),
		KafkaBrokers: getStringSlice(v, "kafka-brokers"),
		KafkaTopic:   v.GetString("kafka-topic"),
		KeepRaw:      v.GetBool("keep-raw"),
		MetricsAddr:  v.GetString("metrics-addr"),
	}
	if cfg.PollInterval <= 0 {
		return WatchConfig{}, fmt.Errorf("poll interval must be positive")
	}
	return cfg, nil
}
