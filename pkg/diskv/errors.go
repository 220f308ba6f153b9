package diskv

import (
	"errors"
	"strings"
)

// Sentinel errors returned by diskv operations.
//
// Callers should use [errors.Is] to check for them:
//
//	if errors.Is(err, diskv.ErrLocked) {
//	    // another process owns the base path
//	}
var (
	// ErrClosed indicates an operation was attempted on a closed [Diskv].
	//
	// This is a programming error.
	ErrClosed = errors.New("diskv: closed")

	// ErrLocked indicates the base path is exclusively locked by another
	// process.
	//
	// Recovery: close the other store instance, or use a different base path.
	ErrLocked = errors.New("diskv: base path locked by another process")

	// ErrEmptyKey indicates an operation was attempted with an empty key.
	//
	// This is a programming error.
	ErrEmptyKey = errors.New("diskv: empty key")
)

// Error is the uniform error type returned by all public diskv APIs for I/O
// failures.
//
// It carries structured key/path context appended to the underlying error
// message:
//
//	open /var/lib/myapp/data/alpha: permission denied (key=alpha path=/var/lib/myapp/data/alpha)
//
// Use [errors.As] to extract structured fields:
//
//	var dErr *diskv.Error
//	if errors.As(err, &dErr) {
//	    log.Printf("failed for key %s at %s", dErr.Key, dErr.Path)
//	}
//
// [errors.Is] works through Error for underlying sentinels such as
// [io/fs.ErrPermission].
type Error struct {
	// Key is the key involved in the failed operation, if any.
	Key string

	// Path is the filesystem path involved, if known. Construction-time
	// failures (base path creation, lock acquisition) have a Path but no Key.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error formats as "<cause> (key=X path=Y)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	cause := e.cause()
	suffix := e.suffix()

	if suffix == "" {
		return cause
	}

	if cause == "" {
		return suffix
	}

	return cause + " " + suffix
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

func (e *Error) suffix() string {
	var parts []string

	if e.Key != "" {
		parts = append(parts, "key="+e.Key)
	}

	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}

	if len(parts) == 0 {
		return ""
	}

	return "(" + strings.Join(parts, " ") + ")"
}

func (e *Error) cause() string {
	if e.Err == nil {
		return ""
	}

	return e.Err.Error()
}

// withContext attaches key/path context at API boundaries and returns *Error.
// If err is already *Error, missing fields are filled in-place (existing
// values preserved).
func withContext(err error, key string, path string) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.Key == "" && key != "" {
			existing.Key = key
		}

		if existing.Path == "" && path != "" {
			existing.Path = path
		}

		return existing
	}

	return &Error{Key: key, Path: path, Err: err}
}
