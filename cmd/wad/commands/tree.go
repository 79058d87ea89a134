package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/wad/tree"
)

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <archive> [folder]",
		Short: "Show entries as a folder tree",
		Args:  cobra.RangeArgs(1, 2),
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

			root := ar.Tree(reg)
			if len(args) == 2 {
				n, ok := root.Lookup(args[1])
				if !ok {
					return fmt.Errorf("%s: no such folder", args[1])
				}
				folder, ok := n.(*tree.Folder)
				if !ok {
					return fmt.Errorf("%s: not a folder", args[1])
				}
				root = folder
			}
			printFolder(cmd.OutOrStdout(), root, 0)
			return nil
		},
	}
}

func printFolder(w io.Writer, f *tree.Folder, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, sub := range f.Folders() {
		fmt.Fprintf(w, "%s%s/ (%d)\n", indent, sub.Name(), sub.FileCount())
		printFolder(w, sub, depth+1)
	}
	for _, file := range f.Files() {
		fmt.Fprintf(w, "%s%s\n", indent, file.Name())
	}
}
