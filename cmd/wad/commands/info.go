package commands

import (
	_ "crypto/sha256" // registers digest.SHA256
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/wad"
)

func newInfoCmd(a *app) *cobra.Command {
	var withDigest bool
	cmd := &cobra.Command{
		Use:   "info <archive>",
		Short: "Summarize an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			var compressed, uncompressed uint64
			counts := make(map[wad.Compression]int)
			for e := range ar.Entries() {
				counts[e.Compression]++
				if e.IsRedirect() {
					continue
				}
				compressed += uint64(e.CompressedSize)
				uncompressed += uint64(e.UncompressedSize)
			}
			ratio := 1.0
			if uncompressed > 0 {
				ratio = float64(compressed) / float64(uncompressed)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:      %s\n", ar.Header().Version)
			fmt.Fprintf(out, "entries:      %d\n", ar.Len())
			fmt.Fprintf(out, "size:         %d\n", ar.Size())
			fmt.Fprintf(out, "table end:    %d\n", ar.TableEnd())
			fmt.Fprintf(out, "stored:       %d\n", compressed)
			fmt.Fprintf(out, "uncompressed: %d\n", uncompressed)
			fmt.Fprintf(out, "ratio:        %.3f\n", ratio)
			for _, c := range []wad.Compression{wad.CompressionNone, wad.CompressionGZip, wad.CompressionZstd, wad.CompressionRedirect} {
				if counts[c] > 0 {
					fmt.Fprintf(out, "  %-10s  %d\n", c, counts[c])
				}
			}
			if dups := ar.Duplicates(); len(dups) > 0 {
				fmt.Fprintf(out, "duplicates:   %d\n", len(dups))
			}
			if withDigest {
				src := ar.Source()
				dgst, err := digest.SHA256.FromReader(io.NewSectionReader(src, 0, src.Size()))
				if err != nil {
					return fmt.Errorf("digest: %w", err)
				}
				fmt.Fprintf(out, "digest:       %s\n", dgst)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDigest, "digest", true, "print the SHA-256 digest of the whole archive")
	return cmd
}
