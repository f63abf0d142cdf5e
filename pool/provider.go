package pool

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// A StorageProvider is the remote (or remote-like) backing store of the
// pool. Keys are flat, slash-free names; the provider decides layout.
type StorageProvider interface {
	GetFile(key string) (io.ReadCloser, error)
	PutFile(key string, r io.Reader) error
	DeleteFile(key string) error
}

// ErrNotFound is what providers return for a missing key.
var ErrNotFound = errors.New("no object under this key")

// FilesystemProvider stores objects as plain files under a root
// directory. Puts go through a temp file and a rename, so a reader never
// observes a half-written object.
type FilesystemProvider struct {
	root string
}

// NewFilesystemProvider ensures root exists and returns a provider over
// it.
func NewFilesystemProvider(root string) (*FilesystemProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create storage root %s", root)
	}
	return &FilesystemProvider{root: root}, nil
}

func (p *FilesystemProvider) keyPath(key string) string {
	return filepath.Join(p.root, filepath.Base(key))
}

func (p *FilesystemProvider) GetFile(key string) (io.ReadCloser, error) {
	f, err := os.Open(p.keyPath(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open object %s", key)
	}
	return f, nil
}

func (p *FilesystemProvider) PutFile(key string, r io.Reader) error {
	tmp, err := os.CreateTemp(p.root, ".put-*")
	if err != nil {
		return errors.Wrap(err, "failed to create staging file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "failed to write object %s", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to flush object %s", key)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), p.keyPath(key)), "failed to publish object %s", key)
}

func (p *FilesystemProvider) DeleteFile(key string) error {
	err := os.Remove(p.keyPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(err, "failed to delete object %s", key)
}
