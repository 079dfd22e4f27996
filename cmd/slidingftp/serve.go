package main

import (
	"context"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rescp17/slidingftp/pkg/discovery"
	"github.com/rescp17/slidingftp/pkg/server"
	"github.com/rescp17/slidingftp/pkg/transport"
)

func newServeCmd(logOpts *logOptions) *cobra.Command {
	cfg := server.DefaultConfig()
	var name string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve files to one client at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			closeLog, err := setupLogging(logOpts, false)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := cfg.Validate(); err != nil {
				return err
			}
			if name == "" {
				name, _ = os.Hostname()
			}
			conn, err := transport.Listen(cfg.Addr)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), conn, cfg, name)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "UDP address to bind")
	cmd.Flags().StringVar(&cfg.Root, "root", cfg.Root, "Only serve files inside this directory")
	cmd.Flags().DurationVar(&cfg.ControlTimeout, "control-timeout", cfg.ControlTimeout, "How long to wait for a bound client outside a transfer")
	cmd.Flags().DurationVar(&cfg.Transfer.AckTimeout, "ack-timeout", cfg.Transfer.AckTimeout, "How long to wait for each Ack before retransmitting")
	cmd.Flags().IntVar(&cfg.Transfer.ChunkChars, "chunk-chars", cfg.Transfer.ChunkChars, "Payload characters per Data message")
	cmd.Flags().BoolVar(&cfg.Announce, "announce", cfg.Announce, "Advertise the server over mDNS")
	cmd.Flags().StringVar(&name, "name", "", "mDNS instance name (defaults to the hostname)")
	return cmd
}

// runServe serves on conn until ctx is cancelled, then closes it.
func runServe(ctx context.Context, conn *transport.UDPConn, cfg *server.Config, name string) error {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Error("fail to close socket", "error", err.Error())
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return server.New(conn, cfg).Serve(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		// Interrupt, not Close: Serve still sends the shutdown Error.
		conn.Interrupt()
		return nil
	})

	if cfg.Announce {
		local, _ := conn.LocalAddr().(*net.UDPAddr)
		g.Go(func() error {
			svc := discovery.ServiceInfo{
				Name:   name,
				Type:   discovery.DefaultServiceType,
				Domain: discovery.DefaultDomain,
			}
			if local != nil {
				svc.Addr = local.IP
				svc.Port = local.Port
			}
			if err := (&discovery.MDNSAdapter{}).Announce(ctx, svc); err != nil {
				slog.Warn("mDNS announcement stopped", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
