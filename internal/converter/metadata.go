package converter

import (
	"fmt"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// CaptureTime returns the EXIF DateTimeOriginal of path, falling back to
// the file's modification time when the image carries no usable EXIF.
func CaptureTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if x, err := exif.Decode(f); err == nil {
		if dt, err := x.DateTime(); err == nil {
			return dt, nil
		}
	}

	fi, err := f.Stat()
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// PreserveCaptureTime stamps dst with the capture time of src.
func PreserveCaptureTime(src, dst string) error {
	t, err := CaptureTime(src)
	if err != nil {
		return err
	}
	if err := os.Chtimes(dst, t, t); err != nil {
		return fmt.Errorf("set times on %s: %w", dst, err)
	}
	return nil
}
