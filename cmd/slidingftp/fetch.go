package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rescp17/slidingftp/internal/util"
	"github.com/rescp17/slidingftp/pkg/client"
	"github.com/rescp17/slidingftp/pkg/discovery"
	"github.com/rescp17/slidingftp/pkg/resource"
	"github.com/rescp17/slidingftp/pkg/transport"
	"github.com/rescp17/slidingftp/pkg/ui"
)

type fetchOptions struct {
	discover        bool
	discoverTimeout time.Duration
	tui             bool
	sha256          string
}

func newFetchCmd(logOpts *logOptions) *cobra.Command {
	cfg := client.DefaultConfig()
	opts := &fetchOptions{discoverTimeout: 5 * time.Second}

	cmd := &cobra.Command{
		Use:   "fetch [resource]",
		Short: "Fetch one file from a server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Resource = args[0]
			}
			closeLog, err := setupLogging(logOpts, opts.tui)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runFetch(cmd, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&cfg.ServerAddr, "server", cfg.ServerAddr, "Server UDP address")
	cmd.Flags().StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Local UDP address to bind")
	cmd.Flags().IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "Largest window the server may use (1-50)")
	cmd.Flags().StringVar(&cfg.Resource, "resource", cfg.Resource, "Name of the file to request")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output path (default client_<resource base name>)")
	cmd.Flags().DurationVar(&cfg.ReceiveTimeout, "receive-timeout", cfg.ReceiveTimeout, "Give up after this long without a message")
	cmd.Flags().BoolVar(&opts.discover, "discover", false, "Find the server over mDNS instead of using --server")
	cmd.Flags().DurationVar(&opts.discoverTimeout, "discover-timeout", opts.discoverTimeout, "How long to browse for a server")
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show a progress view")
	cmd.Flags().StringVar(&opts.sha256, "sha256", "", "Fail unless the output has this SHA-256 (as logged by the server)")
	return cmd
}

func runFetch(cmd *cobra.Command, cfg *client.Config, opts *fetchOptions) error {
	ctx := cmd.Context()

	if opts.discover {
		dctx, cancel := context.WithTimeout(ctx, opts.discoverTimeout)
		svc, err := discovery.FirstService(dctx, &discovery.MDNSAdapter{}, discovery.DefaultServiceType)
		cancel()
		if err != nil {
			return err
		}
		slog.Info("Discovered server", "name", svc.Name, "endpoint", svc.Endpoint())
		cfg.ServerAddr = svc.Endpoint()
	}

	serverAddr, err := transport.ResolveAddr(cfg.ServerAddr)
	if err != nil {
		return err
	}
	conn, err := transport.Listen(cfg.BindAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	outPath := cfg.OutputPath()
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			slog.Error("fail to close file", "error", err.Error())
		}
	}()

	var c *client.Client
	if opts.tui {
		c, err = fetchWithTUI(ctx, conn, serverAddr, cfg, out)
	} else {
		c = client.New(conn, serverAddr, out, cfg, nil)
		err = c.Run(ctx)
	}
	if err != nil {
		return err
	}

	chunks, size := c.Received()
	if opts.sha256 != "" {
		if err := verifyOutput(outPath, opts.sha256); err != nil {
			return err
		}
	}
	sum, err := resource.FileChecksum(outPath)
	if err != nil {
		return err
	}
	slog.Info("Output written", "path", outPath, "chunks", chunks, "bytes", size, "sha256", sum)
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", outPath, util.FormatSize(size), sum)
	return nil
}

func verifyOutput(path, expected string) error {
	ok, err := resource.Verify(path, expected)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s does not match %s", resource.ErrChecksumMismatch, path, expected)
	}
	slog.Info("Checksum verified", "path", path, "sha256", expected)
	return nil
}

func fetchWithTUI(ctx context.Context, conn transport.Conn, serverAddr net.Addr, cfg *client.Config, out io.Writer) (*client.Client, error) {
	uiMessages := make(chan tea.Msg, 64)
	c := client.New(conn, serverAddr, out, cfg, uiMessages)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var g errgroup.Group
	g.Go(func() error {
		defer close(uiMessages)
		return c.Run(runCtx)
	})
	g.Go(func() error {
		// Quitting the view cancels the run.
		defer cancelRun()
		_, err := tea.NewProgram(ui.NewFetchModel(serverAddr.String(), cfg.Resource, uiMessages)).Run()
		return err
	})
	return c, g.Wait()
}
