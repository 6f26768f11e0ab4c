package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"contractbind/internal/awaiter"
	"contractbind/internal/codec"
	"contractbind/internal/config"
	"contractbind/internal/contract"
	"contractbind/internal/model"
)

func addCallFlags(flags *pflag.FlagSet) {
	addCommonFlags(flags)
	flags.String("address", "", "contract address")
	flags.String("from", "", "sender address")
}

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [args...]",
		Short: "Execute a method read-only and print its decoded return values",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCall,
	}
	addCallFlags(cmd.Flags())
	cmd.Flags().String("block", "latest", "block number to execute against")
	return cmd
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <method> [args...]",
		Short: "Submit a method as a transaction and wait for its receipt",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSend,
	}
	flags := cmd.Flags()
	addCallFlags(flags)
	flags.Uint64("gas", 0, "gas limit, 0 lets the node estimate")
	flags.String("gas-price", "", "gas price in wei")
	flags.String("value", "", "value in wei")
	flags.Duration("poll-interval", time.Second, "receipt polling interval")
	flags.Duration("timeout", 2*time.Minute, "receipt wait timeout")
	return cmd
}

// session is a loaded contract handle plus the settings a call needs.
type session struct {
	cfg      config.CallConfig
	logger   *zap.Logger
	contract *contract.Contract
	from     common.Address
	close    func()
}

func openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCall(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("invalid address: %q", cfg.Address)
	}
	var from common.Address
	if cfg.From != "" {
		if !common.IsHexAddress(cfg.From) {
			return nil, fmt.Errorf("invalid from address: %q", cfg.From)
		}
		from = common.HexToAddress(cfg.From)
	}

	logger, err := newLogger(cfg.Common)
	if err != nil {
		return nil, err
	}
	iface, err := loadInterface(cfg.ABI)
	if err != nil {
		return nil, err
	}
	chainClient, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		logger:   logger,
		contract: contract.New(common.HexToAddress(cfg.Address), iface, chainClient, logger),
		from:     from,
		close: func() {
			chainClient.Close()
			_ = logger.Sync()
		},
	}, nil
}

// bind parses text arguments against the method's inputs.
func (s *session) bind(name string, args []string) (*contract.BoundCall, error) {
	m, err := s.contract.Interface().Method(name)
	if err != nil {
		return nil, err
	}
	values, err := parseMethodArgs(m, args)
	if err != nil {
		return nil, err
	}
	return s.contract.Method(name, values...)
}

func runCall(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	block, err := parseBlock(s.cfg.Block)
	if err != nil {
		return err
	}
	call, err := s.bind(args[0], args[1:])
	if err != nil {
		return err
	}

	out, err := call.Call(ctx, model.CallOpts{From: s.from, BlockNumber: block})
	if err != nil {
		var revert *contract.RevertError
		if errors.As(err, &revert) {
			fmt.Fprintln(cmd.ErrOrStderr(), revert.Error())
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), namedValues(call.Method().Outputs, out))
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	gasPrice, err := parseWei(s.cfg.GasPrice)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}
	value, err := parseWei(s.cfg.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	call, err := s.bind(args[0], args[1:])
	if err != nil {
		return err
	}

	wait := awaiter.Options{PollingInterval: s.cfg.PollInterval, Timeout: s.cfg.Timeout}
	if err := wait.Validate(); err != nil {
		return err
	}

	pending, err := call.Send(ctx, model.TxOptions{From: s.from, Gas: s.cfg.Gas, GasPrice: gasPrice, Value: value})
	if err != nil {
		return err
	}
	s.logger.Info("transaction submitted", zap.String("method", call.Method().Signature), zap.String("tx", pending.TxHash.Hex()))

	receipt, err := pending.Await(ctx, wait)
	if err != nil {
		var reverted *awaiter.RevertedError
		if errors.As(err, &reverted) {
			fmt.Fprintln(cmd.ErrOrStderr(), reverted.Error())
		}
		return err
	}
	return printJSON(cmd.OutOrStdout(), receiptView(s.contract.Interface(), receipt))
}

func parseMethodArgs(m *contract.Method, args []string) ([]any, error) {
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", m.Signature, len(m.Inputs), len(args))
	}
	values := make([]any, len(args))
	for i, arg := range m.Inputs {
		v, err := codec.ParseValue(arg.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, arg.Type, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseBlock(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "latest") {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid block number %q", s)
	}
	return n, nil
}

func parseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, ok := new(big.Int).SetString(s, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return n, nil
}

// namedValues pairs decoded values with their argument names.
func namedValues(args codec.Arguments, values []any) codec.OrderedObject {
	names := args.Names()
	out := make(codec.OrderedObject, len(values))
	for i, v := range values {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		out[i] = codec.StructField{Name: name, Value: codec.JSONValue(v)}
	}
	return out
}

type eventOutput struct {
	Event    string              `json:"event"`
	LogIndex uint64              `json:"log_index"`
	Args     codec.OrderedObject `json:"args"`
}

type receiptOutput struct {
	TxHash      string        `json:"tx_hash"`
	BlockNumber uint64        `json:"block_number"`
	Status      uint64        `json:"status"`
	GasUsed     uint64        `json:"gas_used"`
	Events      []eventOutput `json:"events"`
}

// receiptView decodes the receipt logs the interface knows about.
func receiptView(iface *contract.Interface, receipt *model.Receipt) receiptOutput {
	out := receiptOutput{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		Status:      receipt.Status,
		GasUsed:     receipt.GasUsed,
		Events:      []eventOutput{},
	}
	for _, log := range receipt.Logs {
		ev, err := iface.DecodeLog(log)
		if err != nil {
			continue
		}
		args := make(codec.OrderedObject, len(ev.Order))
		for i, name := range ev.Order {
			args[i] = codec.StructField{Name: name, Value: codec.JSONValue(ev.Args[name])}
		}
		out.Events = append(out.Events, eventOutput{Event: ev.Event, LogIndex: log.LogIndex, Args: args})
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
