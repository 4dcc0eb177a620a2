package storage

import "io"

// BlobStore holds lesson resource files. Keys are opaque; the resources table
// maps resource IDs to keys.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
}
