package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"stemdeck/internal/services"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, services.UserMessage(err))
		}
		os.Exit(1)
	}
}
