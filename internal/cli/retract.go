package cli

import (
	"github.com/spf13/cobra"
)

// NewRetractCommand creates the retract command.
func NewRetractCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retract",
		Short: "Delete this node's record from the ledger",
		Long: `Delete the record stored under this node's id.

Blocks until the transaction is mined. Requires a private key.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			ctx := commandContext(cmd)

			n, err := rootOpts.openNode(ctx, true)
			if err != nil {
				return err
			}
			defer shutdownNode(n)
			logIndexStats(out, n)

			receipt, err := n.DeleteMyRecord(ctx)
			if err != nil {
				_ = out.Error("RETRACT_FAILED", err.Error(), nil)
				return WrapExitError(ExitFailure, "retract failed", err)
			}
			return printReceipt(out, n.Identity().NodeID(), receipt)
		},
	}
}
