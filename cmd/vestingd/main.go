package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var cmdMain = &cobra.Command{
	Use:   "vestingd",
	Short: "Token vesting daemon",
	Run:   printUsageAndExit1,
}

var flagMain struct {
	Namespace string
	RedisAddr string
	LogLevel  string
}

func init() {
	cmdMain.PersistentFlags().StringVar(&flagMain.Namespace, "namespace", envOr("VESTING_NAMESPACE", "vesting"), "Address derivation namespace")
	cmdMain.PersistentFlags().StringVar(&flagMain.RedisAddr, "redis-addr", os.Getenv("VESTING_REDIS_ADDR"), "Redis address of the token bank (in-memory bank when empty)")
	cmdMain.PersistentFlags().StringVar(&flagMain.LogLevel, "log-level", envOr("VESTING_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

func printUsageAndExit1(cmd *cobra.Command, _ []string) {
	_ = cmd.Usage()
	os.Exit(1)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagMain.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", flagMain.LogLevel, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}
