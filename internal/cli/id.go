package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/seedsindex/internal/config"
	"github.com/roach88/seedsindex/internal/identity"
)

type idOutput struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
}

// NewIDCommand creates the id command. It derives the node id from the
// configured key without contacting the ledger.
func NewIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "id",
		Short:         "Print this node's id and address",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			cfg, err := rootOpts.loadConfig(config.Overrides{})
			if err != nil {
				return err
			}
			if err := cfg.RequirePrivateKey(); err != nil {
				return WrapExitError(ExitCommandError, "identity required", err)
			}
			id, err := identity.FromHex(cfg.Node.PrivateKey)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid identity", err)
			}

			res := idOutput{NodeID: id.NodeID().Hex(), Address: id.Address().Hex()}
			if out.Format == "json" {
				return out.Success(res)
			}
			return out.Success(fmt.Sprintf("node_id: %s\naddress: %s", res.NodeID, res.Address))
		},
	}
}
