package paramstore

import "fmt"

// TransportError indicates that a call to the parameter store service
// failed before a result could be obtained: connection failures, throttling,
// authorization rejections, or a rejected write.
//
// For read operations the client reports TransportError through the error
// callback and degrades to defaults; it is never returned from Get. For
// writes and deletes it is returned to the caller.
type TransportError struct {
	// Op describes the operation that failed (e.g. "get parameters 0-9").
	Op string

	// Err is the underlying service or transport error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("paramstore: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MissingParameterError indicates that a requested parameter had no value
// in the store and the request carried no default. It aborts the whole
// batch: a Get either resolves every name or fails.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("paramstore: no value for parameter %q and no default provided", e.Name)
}

// DeleteFailedError indicates that the store did not confirm deletion of a
// parameter (typically because it does not exist). It aborts the whole batch.
type DeleteFailedError struct {
	Name string
}

func (e *DeleteFailedError) Error() string {
	return fmt.Sprintf("paramstore: parameter %q was not deleted", e.Name)
}

// PersistenceError indicates a local filesystem failure while materializing
// or removing a target file: directory creation, open, write, sync, close,
// or remove.
type PersistenceError struct {
	// Path is the target file path the operation was acting on.
	Path string

	// Op is the filesystem step that failed ("create directory", "open",
	// "write", "sync", "close", "remove").
	Op string

	// Err is the underlying OS error.
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("paramstore: %s failed for target %q: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
