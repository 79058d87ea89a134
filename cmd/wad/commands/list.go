package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/wad"
)

func newListCmd(a *app) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:     "ls <archive>",
		Aliases: []string{"list"},
		Short:   "List entries in hash order",
		Long: `List every entry in the archive in hash order.

Entries are named through the path registry given by --hashes; entries
the registry does not know are shown by hash only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()
			reg, err := a.registry()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for e := range ar.Entries() {
				name, ok := reg.Lookup(e.PathHash)
				if !ok {
					name = "-"
				}
				if !long {
					fmt.Fprintf(tw, "%s\t%s\n", wad.FormatHash(e.PathHash), name)
					continue
				}
				detail := fmt.Sprintf("%d", e.UncompressedSize)
				if e.IsRedirect() {
					target, err := ar.RedirectTarget(e)
					if err != nil {
						detail = "broken"
					} else {
						detail = "-> " + wad.FormatHash(target)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					wad.FormatHash(e.PathHash), e.Compression, e.CompressedSize, detail, name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show compression, sizes and redirect targets")
	return cmd
}
