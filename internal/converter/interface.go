package converter

import (
	"context"
	"time"
)

// Job is a single input/output pair. Jobs are created by the scanner and
// never modified afterwards.
type Job struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Outcome is the result of executing one Job. A nil Err means success.
type Outcome struct {
	Job      Job
	Err      error
	Duration time.Duration
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Codec transcodes one image by running an external encoder.
type Codec interface {
	// Name returns the registry name of this codec (e.g. "ffmpeg").
	Name() string

	// Binary returns the executable that Convert runs.
	Binary() string

	// TargetFormat returns the output file extension without the dot.
	TargetFormat() string

	// Convert encodes job.Input into job.Output at the given quality,
	// overwriting any existing output. It must not retry.
	Convert(ctx context.Context, job Job, quality int) error
}

// Info describes a registered codec.
type Info struct {
	Name         string `json:"name"`
	Binary       string `json:"binary"`
	TargetFormat string `json:"target_format"`
	Available    bool   `json:"available"`
}
