package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxMemberSize caps a single extracted member (decompression bomb guard)
const maxMemberSize = 1 << 30

// Pack stores every regular file under sourceDir in a Deflate zip at
// archivePath, keyed by its slash separated path relative to sourceDir.
// The archive is written to a partial file and renamed into place, so a
// failed Pack leaves nothing at archivePath.
func Pack(sourceDir, archivePath string) error {
	tmp := archivePath + partialSuffix
	if err := writeArchive(sourceDir, tmp); err != nil {
		_ = os.Remove(tmp)
		return newError(ErrArchiveWrite, "pack", archivePath, err)
	}
	if err := os.Rename(tmp, archivePath); err != nil {
		_ = os.Remove(tmp)
		return newError(ErrArchiveWrite, "pack", archivePath, err)
	}
	return nil
}

func writeArchive(sourceDir, outputPath string) error {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)

	walkErr := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		return addArchiveMember(zipWriter, p, filepath.ToSlash(relPath))
	})
	if walkErr != nil {
		zipWriter.Close()
		return walkErr
	}

	if err := zipWriter.Close(); err != nil {
		return err
	}
	if err := outFile.Sync(); err != nil {
		return err
	}
	return outFile.Close()
}

func addArchiveMember(zw *zip.Writer, filePath, name string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("prepare header for %s: %w", name, err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// Unpack extracts every member of archivePath into destDir, recreating
// relative subdirectories. Members that would land outside destDir are
// rejected. On error destDir is in an undefined state and must be discarded.
func Unpack(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return newError(ErrArchiveCorrupt, "unpack", archivePath, err)
	}
	defer reader.Close()

	for _, member := range reader.File {
		if err := extractMember(member, destDir); err != nil {
			return newError(ErrArchiveCorrupt, "unpack", archivePath, err)
		}
	}
	return nil
}

func extractMember(member *zip.File, destDir string) error {
	destPath, err := memberPath(destDir, member.Name)
	if err != nil {
		return err
	}

	if member.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}
	if member.UncompressedSize64 > maxMemberSize {
		return fmt.Errorf("member %s too large: %d bytes", member.Name, member.UncompressedSize64)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", member.Name, err)
	}

	rc, err := member.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", member.Name, err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", member.Name, err)
	}

	// Reading one byte past the cap lets the size check below catch a lying header
	n, err := io.Copy(outFile, io.LimitReader(rc, maxMemberSize+1))
	closeErr := outFile.Close()
	if err != nil {
		return fmt.Errorf("extract %s: %w", member.Name, err)
	}
	if closeErr != nil {
		return fmt.Errorf("extract %s: %w", member.Name, closeErr)
	}
	if n > maxMemberSize {
		return fmt.Errorf("member %s exceeds %d bytes", member.Name, int64(maxMemberSize))
	}
	return nil
}

// memberPath resolves an archive member name inside destDir
func memberPath(destDir, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}

	destPath := filepath.Join(destDir, filepath.FromSlash(clean))
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}
	return destPath, nil
}
