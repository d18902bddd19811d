package main

import (
	"context"
	"errors"
	"os"

	"github.com/ah-its-andy/towebp/internal/batch"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			batch.ReportError(os.Stderr, err)
		}
		os.Exit(1)
	}
}
