// Package blob stores attachment payloads on local disk, keyed by storage
// key. Metadata lives in the ticket store; only download streams touch this.
package blob

import (
	"io"
	"os"
	"path/filepath"
)

type Dir struct {
	root string
}

func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key string) string {
	// Keys are uuids minted by the engine; Base guards against traversal in
	// case a corrupted key reaches us.
	return filepath.Join(d.root, filepath.Base(key))
}

func (d *Dir) Put(key string, r io.Reader) (int64, error) {
	f, err := os.Create(d.path(key))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(d.path(key))
		return 0, err
	}
	return n, nil
}

func (d *Dir) Open(key string) (io.ReadCloser, error) {
	return os.Open(d.path(key))
}

func (d *Dir) Delete(key string) error {
	err := os.Remove(d.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
