package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/seedsindex/internal/topic"
)

// NewTopicsCommand creates the topics command. It needs no ledger.
func NewTopicsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "topics",
		Short:         "List the topic catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			entries := topic.All()

			if out.Format == "json" {
				return out.Success(entries)
			}

			tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LABEL\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Label, e.Description)
			}
			return tw.Flush()
		},
	}
}
