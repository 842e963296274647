package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/seedsindex/internal/topic"
)

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find [topic]",
		Short: "List participants offering a topic",
		Long: `Synchronize with the ledger and list participants tagged with topic.

Without a topic, every participant that has at least one topic is listed.
Topic labels are matched case-insensitively; see "seedsindex topics".

Example:
  seedsindex find Education
  seedsindex find --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			tag := topic.Any
			if len(args) == 1 {
				var ok bool
				if tag, ok = topic.ByLabel(args[0]); !ok {
					_ = out.Error("INVALID_TOPIC", "unknown topic "+args[0], nil)
					return NewExitError(ExitCommandError, "unknown topic "+args[0])
				}
			}

			n, err := rootOpts.openNode(commandContext(cmd), false)
			if err != nil {
				return err
			}
			defer shutdownNode(n)
			logIndexStats(out, n)

			return out.Records(n.FindByTopic(tag))
		},
	}
}
