package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/wad"
)

func newHashCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash <path>...",
		Short: "Print the path hash of virtual paths",
		Long: `Print the path hash of each argument, in registry format.

Paths are normalized first, so "Data\Icons\A.png" and "data/icons/a.png"
print the same hash.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, p := range args {
				fmt.Fprintf(w, "%s %s\n", wad.FormatHash(wad.PathHash(p)), p)
			}
			return w.Flush()
		},
	}
}
