package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// run executes bin with args, capturing stderr for the failure report.
// A process that cannot be started yields a wrapped spawn error; a
// non-zero exit yields a *CodecError.
func run(ctx context.Context, codec, bin string, args []string, input string) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &CodecError{
				Codec:    codec,
				Input:    input,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
				Err:      err,
			}
		}
		return fmt.Errorf("failed to execute %s for %s: %w", bin, input, err)
	}
	return nil
}

// Available checks that the codec's binary can be found.
func Available(c Codec) error {
	if _, err := exec.LookPath(c.Binary()); err != nil {
		return fmt.Errorf("required tool not found: %s: %w", c.Binary(), err)
	}
	return nil
}
