package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(adpnerr.ExitCode(err))
	}
}
