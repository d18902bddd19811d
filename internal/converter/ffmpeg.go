package converter

import (
	"context"
	"strconv"
)

// FFmpegCodec encodes WebP through ffmpeg's libwebp encoder.
type FFmpegCodec struct {
	bin string
}

// NewFFmpegCodec returns an ffmpeg codec; an empty bin means "ffmpeg" on PATH.
func NewFFmpegCodec(bin string) *FFmpegCodec {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegCodec{bin: bin}
}

func (c *FFmpegCodec) Name() string         { return "ffmpeg" }
func (c *FFmpegCodec) Binary() string       { return c.bin }
func (c *FFmpegCodec) TargetFormat() string { return "webp" }

func (c *FFmpegCodec) Convert(ctx context.Context, job Job, quality int) error {
	return run(ctx, c.Name(), c.bin, c.args(job, quality), job.Input)
}

func (c *FFmpegCodec) args(job Job, quality int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", job.Input,
		"-quality", strconv.Itoa(quality),
		"-y", // overwrite output
		job.Output,
	}
}
