package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ah-its-andy/towebp/internal/converter"
)

var (
	ErrInputNotFound     = errors.New("input path does not exist")
	ErrUnsupportedFormat = errors.New("input file is not a supported image format")
	ErrNotFileOrDir      = errors.New("input path is neither a file nor a directory")
)

// Mode tells whether the input named a single file or a directory.
type Mode int

const (
	ModeSingle Mode = iota
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "batch"
}

// Options controls job resolution.
type Options struct {
	Input     string
	Output    string // file (single mode) or directory (batch mode); empty means beside the input
	Recursive bool
	Sort      bool
	TargetExt string // without the dot, e.g. "webp"
}

// Plan is the resolved set of jobs for one invocation.
type Plan struct {
	Mode Mode
	Root string
	Jobs []converter.Job
}

// Resolve turns the input path into jobs. It creates the output directory
// tree when an output directory is given. Two inputs that share a stem map
// to the same output; the later job simply overwrites the earlier result.
func Resolve(opts Options) (*Plan, error) {
	if opts.TargetExt == "" {
		opts.TargetExt = "webp"
	}

	fi, err := os.Stat(opts.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Input)
		}
		return nil, fmt.Errorf("stat input %s: %w", opts.Input, err)
	}

	switch {
	case fi.Mode().IsRegular():
		return resolveFile(opts)
	case fi.IsDir():
		return resolveDir(opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotFileOrDir, opts.Input)
	}
}

func resolveFile(opts Options) (*Plan, error) {
	if !IsImageFile(opts.Input) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Input)
	}
	out := opts.Output
	if out == "" {
		out = SiblingPath(opts.Input, opts.TargetExt)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Plan{
		Mode: ModeSingle,
		Root: filepath.Dir(opts.Input),
		Jobs: []converter.Job{{Input: opts.Input, Output: out}},
	}, nil
}

func resolveDir(opts Options) (*Plan, error) {
	files, err := Scan(opts.Input, opts.Recursive, opts.Sort)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", opts.Input, err)
	}

	plan := &Plan{Mode: ModeBatch, Root: opts.Input, Jobs: make([]converter.Job, 0, len(files))}
	if len(files) == 0 {
		return plan, nil
	}

	if opts.Output != "" {
		if err := os.MkdirAll(opts.Output, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory %s: %w", opts.Output, err)
		}
	}

	for _, in := range files {
		out := SiblingPath(in, opts.TargetExt)
		if opts.Output != "" {
			out = MirrorPath(in, opts.Input, opts.Output, opts.TargetExt)
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory for %s: %w", in, err)
		}
		plan.Jobs = append(plan.Jobs, converter.Job{Input: in, Output: out})
	}
	return plan, nil
}

// SiblingPath swaps the extension of input for ext, keeping the directory.
func SiblingPath(input, ext string) string {
	return filepath.Join(filepath.Dir(input), stem(input)+"."+ext)
}

// MirrorPath places input under outDir at the same position it has
// relative to root, with its extension swapped for ext.
//
//	root/a/b/pic.png, out -> out/a/b/pic.webp
func MirrorPath(input, root, outDir, ext string) string {
	rel, err := filepath.Rel(root, input)
	if err != nil {
		rel = input
	}
	return filepath.Join(outDir, SiblingPath(rel, ext))
}
