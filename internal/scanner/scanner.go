// Package scanner discovers convertible images and turns them into
// conversion jobs with their output paths.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Supported input extensions, lowercase and without the dot. Matching is
// case-sensitive: "photo.JPG" is not picked up.
var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"bmp":  true,
	"tiff": true,
	"tif":  true,
}

// IsImageFile reports whether path carries a supported image extension.
func IsImageFile(path string) bool {
	ext := extension(path)
	return ext != "" && imageExtensions[ext]
}

// Extensions returns the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// extension returns the text after the last dot of the base name. A
// leading dot does not start an extension, so ".png" has none.
func extension(path string) string {
	base := filepath.Base(path)
	i := strings.LastIndex(base, ".")
	if i <= 0 {
		return ""
	}
	return base[i+1:]
}

// stem is the base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	if ext := extension(base); ext != "" {
		return base[:len(base)-len(ext)-1]
	}
	return base
}

// Scan lists the image files under dir. With recursive set every nested
// directory is walked; otherwise only direct children are considered.
// Entries that cannot be read are skipped. Paths come back in walk order
// unless sortPaths asks for a full lexicographic sort.
func Scan(dir string, recursive, sortPaths bool) ([]string, error) {
	var files []string

	if recursive {
		// WalkDir does not descend into a symlinked root, so walk its
		// target and report paths under dir.
		walkRoot := dir
		if target, err := filepath.EvalSymlinks(dir); err == nil {
			walkRoot = target
		}
		filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if isRegularFile(path, d) && IsImageFile(path) {
				files = append(files, underRoot(path, walkRoot, dir))
			}
			return nil
		})
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, d := range entries {
			path := filepath.Join(dir, d.Name())
			if isRegularFile(path, d) && IsImageFile(path) {
				files = append(files, path)
			}
		}
	}

	if sortPaths {
		sort.Strings(files)
	}
	return files, nil
}

// underRoot rewrites a path found below walkRoot to the same position
// below dir.
func underRoot(path, walkRoot, dir string) string {
	if walkRoot == dir {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(dir, rel)
}

// isRegularFile follows symlinks so a link to an image counts as a file.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink != 0 {
		fi, err := os.Stat(path)
		return err == nil && fi.Mode().IsRegular()
	}
	return d.Type().IsRegular()
}
