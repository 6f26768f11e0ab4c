package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BINDCTL"

// Common holds settings shared by every command.
type Common struct {
	RPCURL        string
	RPCRate       float64
	RPCBurst      int
	ABI           string
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Validate checks the fields every command needs.
func (c Common) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.ABI == "" {
		return fmt.Errorf("abi path is required")
	}
	return nil
}

// LogsConfig configures the logs (backfill) command.
type LogsConfig struct {
	Common
	Addresses      []string
	Events         []string
	Filter         map[string]string
	FromBlock      uint64
	ToBlock        uint64
	BatchSize      uint64
	Out            string
	Errors         string
	PGDSN          string
	KafkaBrokers   []string
	KafkaTopic     string
	Checkpoint     string
	CheckpointKind string
	CheckpointName string
	MaxRetries     int
	RetryBackoff   time.Duration
	KeepRaw        bool
	MetricsAddr    string
}

// LoadLogs merges config file, environment variables, and flags into LogsConfig.
func LoadLogs(cfgFile string, flags *pflag.FlagSet) (LogsConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", uint64(2000))
		v.SetDefault("out", "./data/events.jsonl")
		v.SetDefault("errors", "./data/decode_errors.jsonl")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("checkpoint-kind", "file")
		v.SetDefault("checkpoint-name", "logs")
		v.SetDefault("kafka-topic", "contract_events")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return LogsConfig{}, err
	}

	cfg := LogsConfig{
		Common:         loadCommon(v),
		Addresses:      getStringSlice(v, "address"),
		Events:         getStringSlice(v, "event"),
		Filter:         getStringMap(v, "filter"),
		FromBlock:      v.GetUint64("from"),
		ToBlock:        v.GetUint64("to"),
		BatchSize:      v.GetUint64("batch-size"),
		Out:            v.GetString("out"),
		Errors:         v.GetString("errors"),
		PGDSN:          v.GetString("pg-dsn"),
		KafkaBrokers:   getStringSlice(v, "kafka-brokers"),
		KafkaTopic:     v.GetString("kafka-topic"),
		Checkpoint:     v.GetString("checkpoint"),
		CheckpointKind: strings.ToLower(v.GetString("checkpoint-kind")),
		CheckpointName: v.GetString("checkpoint-name"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		KeepRaw:        v.GetBool("keep-raw"),
		MetricsAddr:    v.GetString("metrics-addr"),
	}

	switch cfg.CheckpointKind {
	case "none", "file", "bolt":
	case "postgres":
		if cfg.PGDSN == "" {
			return LogsConfig{}, fmt.Errorf("postgres checkpoint requires pg-dsn")
		}
	default:
		return LogsConfig{}, fmt.Errorf("unknown checkpoint kind %q", cfg.CheckpointKind)
	}

	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 5)
	v.SetDefault("log-max-age", 30)
	v.SetDefault("rpc-burst", 1)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("bindctl")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) Common {
	return Common{
		RPCURL:        v.GetString("rpc"),
		RPCRate:       v.GetFloat64("rpc-rate"),
		RPCBurst:      v.GetInt("rpc-burst"),
		ABI:           v.GetString("abi"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
		LogMaxSizeMB:  v.GetInt("log-max-size"),
		LogMaxBackups: v.GetInt("log-max-backups"),
		LogMaxAgeDays: v.GetInt("log-max-age"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
