package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

var ErrInvalidStem = errors.New("invalid file stem")

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// ValidStem reports whether stem can be used as a bare file name inside a
// directory without escaping it.
func ValidStem(stem string) bool {
	if stem == "" || stem == "." || stem == ".." {
		return false
	}
	return !strings.ContainsAny(stem, `/\`) && !strings.Contains(stem, "..")
}

// OutputTemplate returns the yt-dlp output template for stem in dir
func OutputTemplate(dir, stem string) string {
	return filepath.Join(dir, stem+constants.OutputTemplateExt)
}

// FindArtifact probes dir/stem+ext for each extension in order and returns
// the first regular file found.
func FindArtifact(dir, stem string, exts []string) (string, bool) {
	if !ValidStem(stem) {
		return "", false
	}
	for _, ext := range exts {
		path := filepath.Join(dir, stem+ext)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// RemoveArtifacts deletes every file in dir named stem.<anything>, including
// the .part and intermediate stream files yt-dlp leaves behind.
func RemoveArtifacts(dir, stem string) (int, error) {
	if !ValidStem(stem) {
		return 0, ErrInvalidStem
	}
	matches, err := filepath.Glob(filepath.Join(dir, stem+".*"))
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
