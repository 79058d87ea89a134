// Command wad inspects, extracts and builds WAD archives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/meigma/wad/cmd/wad/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "wad:", err)
		os.Exit(1)
	}
}
