package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DecodeConfig configures the offline decode command.
type DecodeConfig struct {
	ABI      string
	Method   string
	LogLevel string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		ABI:      v.GetString("abi"),
		Method:   v.GetString("method"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.ABI == "" {
		return DecodeConfig{}, fmt.Errorf("abi path is required")
	}
	return cfg, nil
}
