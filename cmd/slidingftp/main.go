package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rescp17/slidingftp/pkg/protocol"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		stop()
		os.Exit(protocol.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &logOptions{level: "info", file: defaultLogFile}

	cmd := &cobra.Command{
		Use:   "slidingftp",
		Short: "Reliable file transfer over UDP with a sliding window",
		Long: "slidingftp streams a named file from a single-client server to a client over UDP,\n" +
			"acknowledging every chunk and retransmitting on timeout.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.level, "log-level", opts.level, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.file, "log-file", opts.file, "Log destination while the TUI owns the terminal")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newFetchCmd(opts))
	return cmd
}
