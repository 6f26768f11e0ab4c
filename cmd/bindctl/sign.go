package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"contractbind/internal/config"
	"contractbind/internal/contract"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <account> <message>",
		Short: "Sign a message with a node-managed account and print v, r and s",
		Long:  "The message is taken as hex when it starts with 0x and as text otherwise. Signing is delegated to the node through eth_sign.",
		Args:  cobra.ExactArgs(2),
		RunE:  runSign,
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

type signatureOutput struct {
	Account   string `json:"account"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	V         uint8  `json:"v"`
	R         string `json:"r"`
	S         string `json:"s"`
}

func runSign(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !common.IsHexAddress(args[0]) {
		return fmt.Errorf("invalid account: %q", args[0])
	}
	message, err := parseMessage(args[1])
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Common)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	client, err := dial(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return signAndPrint(ctx, cmd.OutOrStdout(), client, common.HexToAddress(args[0]), message)
}

func signAndPrint(ctx context.Context, w io.Writer, signer contract.Signer, account common.Address, message []byte) error {
	sig, err := contract.Sign(ctx, signer, account, message)
	if err != nil {
		return err
	}
	return printJSON(w, signatureOutput{
		Account:   strings.ToLower(account.Hex()),
		Message:   hexutil.Encode(message),
		Signature: sig.String(),
		V:         sig.V,
		R:         hexutil.Encode(sig.R[:]),
		S:         hexutil.Encode(sig.S[:]),
	})
}

func parseMessage(s string) ([]byte, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		data, err := hexutil.Decode("0x" + s[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid hex message: %w", err)
		}
		return data, nil
	}
	return []byte(s), nil
}
