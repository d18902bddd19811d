package utils

import (
	"os"
	"time"
)

// WaitFileStable returns once two size readings of path taken delay apart
// agree. It takes at most checks readings, then returns nil even if the
// file is still growing. A missing file is an error.
func WaitFileStable(path string, delay time.Duration, checks int) error {
	if checks < 2 {
		checks = 2
	}
	prev, err := fileSize(path)
	if err != nil {
		return err
	}
	for i := 1; i < checks; i++ {
		time.Sleep(delay)
		cur, err := fileSize(path)
		if err != nil {
			return err
		}
		if cur == prev {
			return nil
		}
		prev = cur
	}
	return nil
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
