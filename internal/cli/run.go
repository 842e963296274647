package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/seedsindex/internal/api"
	"github.com/roach88/seedsindex/internal/config"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Listen string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mirror the registry and serve the HTTP API",
		Long: `Start the synchronizer and serve the local index over HTTP.

The node subscribes to registry updates, loads every entry, then keeps the
mirror current until interrupted. Losing the live subscription stops the
process with exit code 1 so a supervisor can restart it.

Example:
  seedsindex run
  seedsindex run --driver sqlite --endpoint ./ledger.db --listen :8088`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address (default from config)")

	return cmd
}

func runNode(opts *RunOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(commandContext(cmd))
	defer cancel()

	cfg, err := opts.loadConfig(config.Overrides{Listen: opts.Listen})
	if err != nil {
		return err
	}
	listen := cfg.HTTP.Listen

	n, err := opts.startNode(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer shutdownNode(n)
	logIndexStats(opts.formatter(cmd), n)

	fmt.Fprintf(cmd.OutOrStdout(), "Index live with %d participants. Serving on %s\n",
		n.Synchronizer().Cache().Len(), listen)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, listen, n)
	})
	g.Go(func() error {
		select {
		case err := <-n.Err():
			return err
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "node stopped", err)
	}
	slog.Info("node stopped gracefully")
	return nil
}

// signalContext is cancelled on SIGINT/SIGTERM or when parent is done.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
