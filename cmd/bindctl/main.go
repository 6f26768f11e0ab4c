package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"contractbind/internal/abis"
	"contractbind/internal/chain"
	"contractbind/internal/config"
	"contractbind/internal/contract"
)

func main() {
	root := &cobra.Command{
		Use:          "bindctl",
		Short:        "Call, transact with and index contracts from their ABI",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newLogsCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newCallCmd())
	root.AddCommand(newSendCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newPoolCmd())
	root.AddCommand(newSignCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "node RPC URL (http, ws or ipc)")
	flags.Float64("rpc-rate", 0, "max RPC requests per second, 0 disables throttling")
	flags.Int("rpc-burst", 1, "RPC request burst")
	flags.String("abi", "", "contract ABI JSON file, or builtin:<name>")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")
	flags.Int("log-max-size", 100, "log file size in MB before rotation")
	flags.Int("log-max-backups", 5, "rotated log files to keep")
	flags.Int("log-max-age", 30, "days to keep rotated log files")
}

func newLogger(c config.Common) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if c.LogFile == "" {
		return cfg.Build()
	}

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAgeDays,
		Compress:   true,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), writer, cfg.Level)
	return zap.New(core, zap.AddCaller()), nil
}

func dial(ctx context.Context, c config.Common, logger *zap.Logger) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, c.RPCURL, chain.Options{
		RateLimit: c.RPCRate,
		Burst:     c.RPCBurst,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

// loadInterface reads an ABI file or a builtin:<name> reference.
func loadInterface(ref string) (*contract.Interface, error) {
	iface, err := abis.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("load abi: %w", err)
	}
	return iface, nil
}

// serveMetrics exposes reg on addr until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
