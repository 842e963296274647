package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/seedsindex/internal/config"
	"github.com/roach88/seedsindex/internal/identity"
	"github.com/roach88/seedsindex/internal/node"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config     string // path to a CUE config file
	Driver     string
	Endpoint   string
	Contract   string
	PrivateKey string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the seedsindex CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "seedsindex",
		Short: "seedsindex - participant index mirrored from a ledger",
		Long: `Keeps a local mirror of the participant registry stored on a ledger
and answers which participants offer a given data category.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			configureLogging(opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "ledger driver (ethereum|sqlite)")
	cmd.PersistentFlags().StringVar(&opts.Endpoint, "endpoint", "", "ledger endpoint or sqlite path")
	cmd.PersistentFlags().StringVar(&opts.Contract, "contract", "", "registry contract address (ethereum driver)")
	cmd.PersistentFlags().StringVar(&opts.PrivateKey, "private-key", "", "node private key in hex (default $"+config.EnvPrivateKey+")")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPublishCommand(opts))
	cmd.AddCommand(NewRetractCommand(opts))
	cmd.AddCommand(NewTopicsCommand(opts))
	cmd.AddCommand(NewIDCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig resolves the config file and applies flag and env overrides.
// extra carries command-specific overrides such as the listen address.
func (o *RootOptions) loadConfig(extra config.Overrides) (*config.Config, error) {
	path := o.Config
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}

	key := o.PrivateKey
	if key == "" {
		key = os.Getenv(config.EnvPrivateKey)
	}

	cfg, err := config.Load(path, config.Overrides{
		Driver:     o.Driver,
		Endpoint:   o.Endpoint,
		Contract:   o.Contract,
		PrivateKey: key,
		Listen:     extra.Listen,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openNode loads config and starts a node. needKey rejects configs
// without a private key before touching the ledger.
func (o *RootOptions) openNode(ctx context.Context, needKey bool) (*node.Node, error) {
	cfg, err := o.loadConfig(config.Overrides{})
	if err != nil {
		return nil, err
	}
	return o.startNode(ctx, cfg, needKey)
}

// startNode is openNode for an already loaded config.
func (o *RootOptions) startNode(ctx context.Context, cfg *config.Config, needKey bool) (*node.Node, error) {
	if needKey {
		if err := cfg.RequirePrivateKey(); err != nil {
			return nil, WrapExitError(ExitCommandError, "identity required", err)
		}
	}

	n, err := node.Init(ctx, cfg)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidPrivateKey) {
			return nil, WrapExitError(ExitCommandError, "invalid identity", err)
		}
		return nil, WrapExitError(ExitFailure, "failed to start node", err)
	}
	return n, nil
}

// logIndexStats reports the mirror after bootstrap under --verbose.
func logIndexStats(out *OutputFormatter, n *node.Node) {
	s := n.Synchronizer()
	st := s.Stats()
	out.VerboseLog("index %s: %d records (applied %d, skipped %d)",
		s.State(), s.Cache().Len(), st.Applied, st.Skipped)
}

func shutdownNode(n *node.Node) {
	if err := n.Shutdown(); err != nil {
		slog.Error("error shutting down node", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
