package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CallConfig configures the call and send commands.
type CallConfig struct {
	Common
	Address      string
	From         string
	Gas          uint64
	GasPrice     string
	Value        string
	Block        string
	PollInterval time.Duration
	Timeout      time.Duration
}

// LoadCall merges config file, environment variables, and flags into CallConfig.
func LoadCall(cfgFile string, flags *pflag.FlagSet) (CallConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("poll-interval", time.Second)
		v.SetDefault("timeout", 2*time.Minute)
	})
	if err != nil {
		return CallConfig{}, err
	}

	return CallConfig{
		Common:       loadCommon(v),
		Address:      v.GetString("address"),
		From:         v.GetString("from"),
		Gas:          v.GetUint64("gas"),
		GasPrice:     v.GetString("gas-price"),
		Value:        v.GetString("value"),
		Block:        v.GetString("block"),
		PollInterval: v.GetDuration("poll-interval"),
		Timeout:      v.GetDuration("timeout"),
	}, nil
}
