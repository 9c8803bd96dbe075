package blockio

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// IBlockIO stores opaque blobs, the caller keeps the mapping from resource
// to blob key.
type IBlockIO interface {
	Name() string
	MaxFileSize() int64
	// Upload stores the whole stream and returns the blob key and its size.
	Upload(ctx context.Context, r io.Reader) (string, int64, error)
	Download(ctx context.Context, filekey string, pos int64) (io.ReadCloser, error)
	// Remove is a no-op for unknown keys.
	Remove(ctx context.Context, filekey string) error
}

type CreateFunc func(args interface{}) (IBlockIO, error)

var mp = make(map[string]CreateFunc)

func Register(name string, fn CreateFunc) {
	if _, ok := mp[name]; ok {
		panic(fmt.Sprintf("block io %s registered twice", name))
	}
	mp[name] = fn
}

func Create(name string, args interface{}) (IBlockIO, error) {
	fn, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("block io type not found, name:%s", name)
	}
	return fn(args)
}

func List() []string {
	rs := make([]string, 0, len(mp))
	for name := range mp {
		rs = append(rs, name)
	}
	sort.Strings(rs)
	return rs
}

// Clone stores a second, independent copy of the blob behind key.
func Clone(ctx context.Context, b IBlockIO, key string) (string, int64, error) {
	rc, err := b.Download(ctx, key, 0)
	if err != nil {
		return "", 0, fmt.Errorf("open clone source failed, key:%s, err:%w", key, err)
	}
	defer rc.Close()
	nkey, size, err := b.Upload(ctx, rc)
	if err != nil {
		return "", 0, fmt.Errorf("upload clone failed, key:%s, err:%w", key, err)
	}
	return nkey, size, nil
}
