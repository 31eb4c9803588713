package backup

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backup engine failures. The set is closed; callers
// branch on it with errors.Is(err, backup.ErrManifestMissing) and friends.
type ErrorKind int

const (
	// ErrSnapshot is a capture-time I/O failure
	ErrSnapshot ErrorKind = iota + 1
	// ErrArchiveWrite means the archive could not be created
	ErrArchiveWrite
	// ErrArchiveCorrupt means the archive is not a valid container or could not be extracted
	ErrArchiveCorrupt
	// ErrManifestMissing means an archive has no backup_metadata.json
	ErrManifestMissing
	// ErrManifestCorrupt means the manifest does not parse or has an incompatible version
	ErrManifestCorrupt
	// ErrDatabaseMissing means an archive has a manifest but no database file
	ErrDatabaseMissing
	// ErrRestore is a restore-time failure that happened before live state was touched
	ErrRestore
	// ErrPartialRestore means live files were being replaced when the failure happened
	ErrPartialRestore
	// ErrUnsupportedArchive is an unknown file extension or backup kind
	ErrUnsupportedArchive
)

var kindNames = map[ErrorKind]string{
	ErrSnapshot:           "snapshot failed",
	ErrArchiveWrite:       "archive write failed",
	ErrArchiveCorrupt:     "archive corrupt",
	ErrManifestMissing:    "backup manifest missing",
	ErrManifestCorrupt:    "backup manifest corrupt",
	ErrDatabaseMissing:    "backup has no database file",
	ErrRestore:            "restore failed",
	ErrPartialRestore:     "restore interrupted, data may now be in a partially restored state",
	ErrUnsupportedArchive: "unsupported backup type",
}

var kindCodes = map[ErrorKind]string{
	ErrSnapshot:           "snapshot",
	ErrArchiveWrite:       "archive_write",
	ErrArchiveCorrupt:     "archive_corrupt",
	ErrManifestMissing:    "manifest_missing",
	ErrManifestCorrupt:    "manifest_corrupt",
	ErrDatabaseMissing:    "database_missing",
	ErrRestore:            "restore",
	ErrPartialRestore:     "partial_restore",
	ErrUnsupportedArchive: "unsupported_archive",
}

// ErrLiveDatabase is the cause when a restore is asked to read the live
// database file itself.
var ErrLiveDatabase = errors.New("backup is the live database file")

// ErrOutsideBackupDir is the cause when a delete targets a file that is not
// directly inside the backup directory.
var ErrOutsideBackupDir = errors.New("path is outside the backup directory")

// ErrBackupExists is the cause when a backup with the same timestamp is
// already on disk.
var ErrBackupExists = errors.New("backup already exists")

// Code returns a stable machine-readable name for the kind
func (k ErrorKind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "unknown"
}

func (k ErrorKind) Error() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("backup error %d", int(k))
}

// Error is the error type returned by every engine operation
type Error struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

func newError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is this error's kind
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf returns the kind carried by err, or 0 when err is not an engine error
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}
