package commands

import (
	"github.com/spf13/cobra"
)

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <path|hash>",
		Short: "Write an entry's content to stdout",
		Long: `Write an entry's verified content to stdout.

The entry is named by its virtual path or, for entries with no known
path, by its hex hash. Redirects are followed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			e, err := resolve(ar, args[1])
			if err != nil {
				return err
			}
			content, err := ar.ReadEntry(e)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(content.Data)
			return err
		},
	}
}
