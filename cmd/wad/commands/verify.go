package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/wad"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>",
		Short: "Check every entry against its size and checksum",
		Args:  cobra.ExactArgs(1),
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

			out := cmd.OutOrStdout()
			failed := 0
			err = ar.Verify(cmd.Context(), func(e wad.Entry, err error) error {
				if err == nil {
					return nil
				}
				failed++
				name, ok := reg.Lookup(e.PathHash)
				if !ok {
					name = wad.FormatHash(e.PathHash)
				}
				fmt.Fprintf(out, "FAIL %s: %v\n", name, err)
				return nil
			}, wad.VerifyWithWorkers(a.cfg.Workers))
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d entries failed verification", failed, ar.Len())
			}
			fmt.Fprintf(out, "ok: %d entries\n", ar.Len())
			return nil
		},
	}
}
