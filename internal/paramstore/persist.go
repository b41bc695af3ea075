package paramstore

import (
	"os"
	"path/filepath"
)

// persist writes value to path durably: parent directories are created as
// needed, the file is truncated and rewritten, and the data is synced to
// stable storage before close. A reader observing the file after persist
// returns sees the complete value, never a partial write.
//
// Parameter values are secrets, so the file is created with mode 0600.
// A close failure after a successful sync is reported through the error
// callback only; the data is already durable at that point.
func (c *Client) persist(path, value string) error {
	if err := writeDurable(path, value, c.onError); err != nil {
		return err
	}

	c.logger.Debug("target file written",
		"path", path,
		"value_length", len(value),
	)
	return nil
}

// WriteTarget persists value to path with the same durability discipline
// the client applies to request targets. It serves callers materializing
// values outside a store call, such as snapshot restores. There is no
// error callback here, so a close failure after a successful sync is
// returned.
func WriteTarget(path, value string) error {
	var closeErr error
	if err := writeDurable(path, value, func(err error) { closeErr = err }); err != nil {
		return err
	}
	return closeErr
}

// writeDurable is the shared write path: create parents, truncate-write,
// sync before close. A close failure after the sync goes to onCloseErr;
// every other failure is returned.
func writeDurable(path, value string, onCloseErr func(error)) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &PersistenceError{Path: path, Op: "create directory", Err: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return &PersistenceError{Path: path, Op: "open", Err: err}
	}

	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Op: "write", Err: err}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return &PersistenceError{Path: path, Op: "sync", Err: err}
	}

	if err := f.Close(); err != nil {
		onCloseErr(&PersistenceError{Path: path, Op: "close", Err: err})
	}
	return nil
}
