// Package filesys provides the small set of file system utilities the root
// facade needs around reading and writing an iidformat file: checking
// whether a path exists before opening it, ensuring a destination directory
// is present before a save, and making a byte-for-byte copy of a file for
// callers that want to snapshot one before overwriting it in place.
package filesys

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// Exists reports whether a file or directory exists at path. It returns
// false with a nil error when the path is simply absent, and a non-nil
// error only when the stat itself failed for some other reason.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CreateDir creates a directory at dirPath with the given permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns the stat error without creating or
//     changing anything (nil for an existing directory).
//
// It also returns ErrIsNotDir if the existing path is a file.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if !force && !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(dirPath, permission); err != nil {
		return err
	}
	return os.Chmod(dirPath, permission)
}

// CopyFile copies a single file from sourcePath to destPath, reading the
// whole source into memory first. The destination file is written with
// permissions 0644 regardless of the source's mode.
func CopyFile(sourcePath, destPath string) error {
	input, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, input, 0644)
}

// DeleteFile removes the file at filePath.
func DeleteFile(filePath string) error {
	return os.Remove(filePath)
}

// AbsPath resolves path to an absolute, cleaned form.
func AbsPath(path string) (string, error) {
	return filepath.Abs(path)
}
