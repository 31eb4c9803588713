package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// partialSuffix marks files that are still being written into the backup dir.
// The catalog never matches it, so an interrupted write is never listed.
const partialSuffix = ".partial"

// copyFile copies src over dst byte-for-byte, keeping the source mode and
// modification time. dst is truncated in place.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	info, err := sourceFile.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	destFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Sync(); err != nil {
		destFile.Close()
		return err
	}
	if err := destFile.Close(); err != nil {
		return err
	}

	// Best effort
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return nil
}

// copyFileAtomic copies src to dst through a sibling partial file and a
// rename, so dst either does not exist or is complete.
func copyFileAtomic(src, dst string) error {
	tmp := dst + partialSuffix
	if err := copyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// copyJSONFiles copies every *.json file directly inside src into dst,
// following symlinks. dst is created when needed. It returns the number of
// files copied.
func copyJSONFiles(src, dst string) (int, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		ok, err := isJSONFile(src, entry)
		if err != nil {
			return count, err
		}
		if !ok {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return count, fmt.Errorf("copy %s: %w", entry.Name(), err)
		}
		count++
	}
	return count, nil
}

// isJSONFile reports whether entry is a *.json regular file, or a symlink
// resolving to one.
func isJSONFile(dir string, entry fs.DirEntry) (bool, error) {
	if !strings.HasSuffix(entry.Name(), ".json") {
		return false, nil
	}
	if entry.Type().IsRegular() {
		return true, nil
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", entry.Name(), err)
	}
	return info.Mode().IsRegular(), nil
}

// fileExists reports whether path exists as a regular file.
// Errors other than not-exist are returned so they are not mistaken for absence.
func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// dirExists is fileExists for directories
func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// sameFile reports whether a and b name the same file on disk. A missing b is
// not an error.
func sameFile(a, b string) (bool, error) {
	infoA, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	infoB, err := os.Stat(b)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(infoA, infoB), nil
}

func tempRoot(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return os.TempDir()
	}
	return dir
}
