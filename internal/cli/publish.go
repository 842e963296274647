package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/topic"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	Location string
	Topics   []string
}

type receiptOutput struct {
	NodeID string `json:"node_id"`
	TxHash string `json:"tx_hash"`
	Block  uint64 `json:"block"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish this node's record",
		Long: `Write this node's location and topics to the ledger under its node id.

Blocks until the transaction is mined. Requires a private key.

Example:
  seedsindex publish --location https://data.example.org/api --topic Health --topic Science`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Location, "location", "", "service endpoint URI (required)")
	cmd.Flags().StringArrayVarP(&opts.Topics, "topic", "t", nil, "topic label (repeatable)")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runPublish(opts *PublishOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	tags := make([]topic.Tag, 0, len(opts.Topics))
	for _, label := range opts.Topics {
		tag, ok := topic.ByLabel(label)
		if !ok {
			_ = out.Error("INVALID_TOPIC", "unknown topic "+label, nil)
			return NewExitError(ExitCommandError, "unknown topic "+label)
		}
		tags = append(tags, tag)
	}

	ctx := commandContext(cmd)
	n, err := opts.openNode(ctx, true)
	if err != nil {
		return err
	}
	defer shutdownNode(n)
	logIndexStats(out, n)

	receipt, err := n.SetMyRecord(ctx, opts.Location, tags...)
	if err != nil {
		_ = out.Error("PUBLISH_FAILED", err.Error(), nil)
		return WrapExitError(ExitFailure, "publish failed", err)
	}
	return printReceipt(out, n.Identity().NodeID(), receipt)
}

func printReceipt(out *OutputFormatter, id ledger.Key, rc ledger.Receipt) error {
	res := receiptOutput{NodeID: id.Hex(), TxHash: rc.TxHash, Block: rc.Block}
	if out.Format == "json" {
		return out.Success(res)
	}
	return out.Success(res.NodeID + "  tx " + res.TxHash)
}
