package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/aodn/pipeline/pipelineerr"
)

// LocalFileStorageBroker implements StorageBroker against the local
// filesystem, grounded on storage.py#LocalFileStorageBroker. Used for
// single-node deployments and for the teacher-style default config's
// file:// sink URIs (config.Default).
type LocalFileStorageBroker struct {
	root string
}

func NewLocalFileStorageBroker(root string) *LocalFileStorageBroker {
	return &LocalFileStorageBroker{root: root}
}

func (b *LocalFileStorageBroker) Scheme() string { return "file" }

func (b *LocalFileStorageBroker) resolve(remotePath string) string {
	return filepath.Join(b.root, remotePath)
}

// Put copies localPath onto remotePath under the broker's root, creating
// any intervening directories. STDLIB JUSTIFICATION: no third-party
// "copy a file" library appears anywhere in the example pack.
func (b *LocalFileStorageBroker) Put(ctx context.Context, localPath, remotePath string) error {
	dest := b.resolve(remotePath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return pipelineerr.WrapSinkPermanent(err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return pipelineerr.WrapSinkPermanent(err)
	}
	defer src.Close()

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return pipelineerr.WrapSinkPermanent(err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return pipelineerr.WrapSinkTransient(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return pipelineerr.WrapSinkTransient(err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return pipelineerr.WrapSinkPermanent(err)
	}
	return nil
}

func (b *LocalFileStorageBroker) Delete(ctx context.Context, remotePath string) error {
	err := os.Remove(b.resolve(remotePath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pipelineerr.WrapSinkPermanent(err)
	}
	return nil
}

func (b *LocalFileStorageBroker) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := os.Stat(b.resolve(remotePath))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, pipelineerr.WrapSinkTransient(err)
}
