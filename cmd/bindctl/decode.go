package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"contractbind/internal/codec"
	"contractbind/internal/config"
	"contractbind/internal/contract"
	"contractbind/internal/indexer"
	"contractbind/internal/model"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode calldata, return data or a log offline",
		Long: "Without flags the input is calldata and the method is found by selector.\n" +
			"With --method the input is that method's return data.\n" +
			"With --topics the input is log data and the topics select the event.",
		Args: cobra.ExactArgs(1),
		RunE: runDecode,
	}

	flags := cmd.Flags()
	flags.String("abi", "", "contract ABI JSON file, or builtin:<name>")
	flags.String("method", "", "decode return data of this method")
	flags.StringSlice("topics", nil, "log topics (comma-separated), decodes the input as log data")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	iface, err := loadInterface(cfg.ABI)
	if err != nil {
		return err
	}
	data, err := hexutil.Decode(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("input is not 0x-prefixed hex: %w", err)
	}
	topics, _ := cmd.Flags().GetStringSlice("topics")
	return decodeInput(cmd.OutOrStdout(), iface, cfg.Method, topics, data)
}

type decodedOutput struct {
	Kind      string              `json:"kind"`
	Name      string              `json:"name"`
	Signature string              `json:"signature"`
	Values    codec.OrderedObject `json:"values"`
}

func decodeInput(w io.Writer, iface *contract.Interface, method string, topics []string, data []byte) error {
	switch {
	case len(topics) > 0:
		hashes, err := indexer.ParseTopic0(topics)
		if err != nil {
			return err
		}
		ev, err := iface.DecodeLog(model.LogRecord{Topics: hashes, Data: data})
		if err != nil {
			return err
		}
		values := make(codec.OrderedObject, len(ev.Order))
		for i, name := range ev.Order {
			values[i] = codec.StructField{Name: name, Value: codec.JSONValue(ev.Args[name])}
		}
		return printJSON(w, decodedOutput{Kind: "log", Name: ev.Event, Signature: ev.Signature, Values: values})

	case method != "":
		m, err := iface.Method(method)
		if err != nil {
			return err
		}
		out, err := m.DecodeReturn(data)
		if err != nil {
			return err
		}
		return printJSON(w, decodedOutput{Kind: "return", Name: m.Name, Signature: m.Signature, Values: namedValues(m.Outputs, out)})

	default:
		m, values, err := iface.DecodeCalldata(data)
		if err != nil {
			return err
		}
		return printJSON(w, decodedOutput{Kind: "calldata", Name: m.Name, Signature: m.Signature, Values: namedValues(m.Inputs, values)})
	}
}
