package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// InspectConfig configures the token and pool metadata commands. They use
// builtin interfaces, so no ABI file is needed.
type InspectConfig struct {
	Common
	Block string
}

func (c InspectConfig) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	return nil
}

// LoadInspect merges config file, environment variables, and flags into InspectConfig.
func LoadInspect(cfgFile string, flags *pflag.FlagSet) (InspectConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return InspectConfig{}, err
	}
	return InspectConfig{
		Common: loadCommon(v),
		Block:  v.GetString("block"),
	}, nil
}
