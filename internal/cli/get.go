package cli

import (
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <node-id>",
		Short: "Show one participant",
		Long: `Synchronize with the ledger and print the record stored under node-id.

Exits with code 1 if no such participant exists.

Example:
  seedsindex get 0x2802721c8eadcd4b51bef9f2b29b39041c520de59b341e577f51789c4556284b`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			n, err := rootOpts.openNode(commandContext(cmd), false)
			if err != nil {
				return err
			}
			defer shutdownNode(n)
			logIndexStats(out, n)

			r, ok := n.RecordByNodeID(args[0])
			if !ok {
				_ = out.Error("NOT_FOUND", "no participant with id "+args[0], nil)
				return NewExitError(ExitFailure, "participant not found")
			}
			if out.Format == "json" {
				return out.Success(r)
			}
			return out.Success(RecordLine(r))
		},
	}
}
