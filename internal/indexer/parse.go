package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"contractbind/internal/codec"
	"contractbind/internal/contract"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTopic0 converts string topic0 hashes into common.Hash.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, common.BytesToHash(data))
	}
	return topics, nil
}

// ParseIndexFilter converts name=value text, as given on the command line,
// into typed filter values for the indexed arguments of ev.
func ParseIndexFilter(ev *contract.Event, raw map[string]string) (contract.IndexFilter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := ev.Inputs.Names()
	types := make(map[string]codec.Type, len(names))
	for i, arg := range ev.Inputs {
		if arg.Indexed {
			types[names[i]] = arg.Type
		}
	}

	filter := make(contract.IndexFilter, len(raw))
	for name, text := range raw {
		t, ok := types[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no indexed argument %q", contract.ErrUnknownArgument, ev.Signature, name)
		}
		if codec.IsHashedTopic(t) && strings.HasPrefix(text, "0x") && len(text) == 2+2*common.HashLength {
			filter[name] = common.HexToHash(text)
			continue
		}
		value, err := codec.ParseValue(t, text)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", name, err)
		}
		filter[name] = value
	}
	return filter, nil
}
