// Package abis ships parsed interfaces for well-known contracts and helpers
// that read token and pool metadata through them.
package abis

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"contractbind/internal/contract"
)

const (
	ERC20         = "erc20"
	ERC20Bytes32  = "erc20-bytes32"
	UniswapV3Pool = "uniswap-v3-pool"
)

var ErrUnknownInterface = errors.New("unknown builtin interface")

type builtin struct {
	source string
	once   sync.Once
	iface  *contract.Interface
	err    error
}

var builtins = map[string]*builtin{
	ERC20:         {source: erc20JSON},
	ERC20Bytes32:  {source: erc20Bytes32JSON},
	UniswapV3Pool: {source: uniswapV3PoolJSON},
}

// Lookup returns the named builtin interface. Each one is parsed once and
// shared; callers must not modify it.
func Lookup(name string) (*contract.Interface, error) {
	b, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterface, name)
	}
	b.once.Do(func() {
		b.iface, b.err = contract.ParseJSON(strings.NewReader(b.source))
	})
	if b.err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, b.err)
	}
	return b.iface, nil
}

// Names lists the builtin interface names.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve treats a "builtin:<name>" reference as a builtin interface and
// anything else as a JSON ABI file path.
func Resolve(ref string) (*contract.Interface, error) {
	if name, ok := strings.CutPrefix(ref, "builtin:"); ok {
		return Lookup(name)
	}
	return contract.LoadJSONFile(ref)
}
