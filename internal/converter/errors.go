package converter

import (
	"fmt"
	"strings"
)

// CodecError is returned when the encoder process ran but exited non-zero.
type CodecError struct {
	Codec    string
	Input    string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CodecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no diagnostic output"
	}
	return fmt.Sprintf("%s conversion failed for %s (exit %d): %s", e.Codec, e.Input, e.ExitCode, msg)
}

func (e *CodecError) Unwrap() error { return e.Err }
