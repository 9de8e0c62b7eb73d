// Package storage implements the Store and Archive sinks of spec.md §6:
// uniform URI-addressed put/delete/query operations dispatched to a
// concrete backend by URI scheme, grounded on original_source
// aodncore/pipeline/storage.py's get_storage_broker.
package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aodn/pipeline/pipelineerr"
)

// StorageBroker is the uniform interface the publisher drives for both the
// store sink (upload/delete of published artifacts) and the archive sink
// (cold-durability copies), per spec.md §6.
type StorageBroker interface {
	// Put uploads the content at localPath to remotePath under this
	// broker's root, overwriting any existing object at that path.
	Put(ctx context.Context, localPath, remotePath string) error

	// Delete removes remotePath. Deleting a path that does not exist is
	// not an error (idempotent, so publisher retries are safe).
	Delete(ctx context.Context, remotePath string) error

	// Exists reports whether remotePath is currently present, used by the
	// round-trip test property of spec.md §8 ("Archive put followed by
	// delete of the same destination returns query -> not-exists").
	Exists(ctx context.Context, remotePath string) (bool, error)

	// Scheme identifies the backend, used only for diagnostics.
	Scheme() string
}

// NewStorageBroker dispatches on rawURL's scheme to construct a concrete
// broker, the Go shape of storage.py#get_storage_broker's if/elif chain
// over a parsed URL's scheme.
func NewStorageBroker(rawURL string) (StorageBroker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pipelineerr.WrapInvalidInput(fmt.Errorf("parsing storage URI %q: %w", rawURL, err))
	}

	switch u.Scheme {
	case "file", "":
		return NewLocalFileStorageBroker(u.Path), nil
	case "s3":
		return NewS3StorageBroker(u)
	case "minio", "minios":
		return NewMinioStorageBroker(u)
	case "webdav", "webdavs":
		return NewWebDavStorageBroker(u), nil
	default:
		return nil, pipelineerr.NewInvalidInput("unsupported storage scheme %q in URI %q", u.Scheme, rawURL)
	}
}
