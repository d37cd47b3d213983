package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Details strings reported to the controller. Controllers match on these,
// so they must not change.
const (
	DetailsParentTraversal = "Accessing parent directory is forbidden in file path"
	DetailsFetchFailed     = "Failed to fetch asset"
	detailsWritePrefix     = "Failed to write asset"
)

// ArgumentError reports a required operation argument that is missing or empty.
type ArgumentError struct {
	Arg string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("Couldn't find '%s' argument", e.Arg)
}

// PathSafetyError reports a relative path that could escape the asset root.
type PathSafetyError struct {
	Path string
	// Reason is for logs only; the reported details are fixed.
	Reason string
}

func (e *PathSafetyError) Error() string {
	return DetailsParentTraversal
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchNotFound          FetchErrorKind = "not-found"
	FetchStatus            FetchErrorKind = "status"
	FetchNetwork           FetchErrorKind = "network-error"
	FetchTimeout           FetchErrorKind = "timeout"
	FetchTooLarge          FetchErrorKind = "too-large"
	FetchUnsupportedScheme FetchErrorKind = "unsupported-scheme"
	FetchInvalidURL        FetchErrorKind = "invalid-url"
)

// FetchError is returned by Fetcher implementations.
// All kinds surface identically to the controller.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Sentinel errors for write failure classification.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDiskFull         = errors.New("no space left on device")
	ErrReadOnly         = errors.New("read-only file system")
	ErrPathConflict     = errors.New("path conflicts with an existing file or directory")
	ErrIO               = errors.New("i/o error")
)

// WriteError wraps a store failure with a classification.
type WriteError struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Op is the step that failed (mkdir, create, write, sync, rename).
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *WriteError) Is(target error) bool {
	return e.Kind == target
}

// Details is the text reported to the controller.
func (e *WriteError) Details() string {
	return fmt.Sprintf("%s: %v", detailsWritePrefix, e.Kind)
}

func newWriteError(op, path string, err error) *WriteError {
	return &WriteError{Kind: classifyWriteError(err), Op: op, Path: path, Err: err}
}

func classifyWriteError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOSPC):
		return ErrDiskFull
	case errors.Is(err, syscall.EROFS):
		return ErrReadOnly
	case errors.Is(err, syscall.ENOTDIR), errors.Is(err, syscall.EISDIR), errors.Is(err, fs.ErrExist):
		return ErrPathConflict
	default:
		return ErrIO
	}
}
