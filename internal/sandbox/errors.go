package sandbox

import "errors"

// Sentinel errors. Callers branch with errors.Is; wrapped messages keep the
// raw remote diagnostic.
var (
	ErrSandboxNotFound     = errors.New("sandbox not found")
	ErrNameConflict        = errors.New("sandbox name already in use")
	ErrNotRunning          = errors.New("sandbox not running")
	ErrImageNotFound       = errors.New("image not found")
	ErrResourceLimit       = errors.New("resource limit exceeded")
	ErrTimeout             = errors.New("operation timed out")
	ErrCommandFailed       = errors.New("command failed")
	ErrPathNotFound        = errors.New("path not found on host")
	ErrMount               = errors.New("mount error")
	ErrMountNotFound       = errors.New("mount not found")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
