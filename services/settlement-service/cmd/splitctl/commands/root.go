package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the splitctl command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "splitctl",
		Short:         "Split a bulk order invoice between two parties",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(quoteCmd())
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}
