package converter

import (
	"context"
	"strconv"
)

// CWebPCodec uses the reference cwebp encoder from libwebp. cwebp always
// overwrites its -o target.
type CWebPCodec struct {
	bin string
}

func NewCWebPCodec(bin string) *CWebPCodec {
	if bin == "" {
		bin = "cwebp"
	}
	return &CWebPCodec{bin: bin}
}

func (c *CWebPCodec) Name() string         { return "cwebp" }
func (c *CWebPCodec) Binary() string       { return c.bin }
func (c *CWebPCodec) TargetFormat() string { return "webp" }

func (c *CWebPCodec) Convert(ctx context.Context, job Job, quality int) error {
	return run(ctx, c.Name(), c.bin, c.args(job, quality), job.Input)
}

func (c *CWebPCodec) args(job Job, quality int) []string {
	return []string{"-quiet", "-q", strconv.Itoa(quality), job.Input, "-o", job.Output}
}
