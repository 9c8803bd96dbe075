package memfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/utils"
	"github.com/xxxsen/tgdav/webdav"
)

type resource struct {
	backend.Location
	backend.LockSupport
	fs *FS
}

func (r *resource) node() (*node, error) {
	n, ok := r.fs.lookup(r.GetCanonicalPath())
	if !ok {
		return nil, fmt.Errorf("path:%s, %w", r.GetCanonicalPath(), webdav.ErrResourceNotFound)
	}
	return n, nil
}

func (r *resource) Exists(ctx context.Context) (bool, error) {
	_, ok := r.fs.lookup(r.GetCanonicalPath())
	return ok, nil
}

func (r *resource) GetProperties(ctx context.Context) (webdav.IProperties, error) {
	return backend.NewProperties(r, r.fs.props), nil
}

func (r *resource) GetStream(ctx context.Context, rng *webdav.Range) (io.ReadCloser, error) {
	n, err := r.node()
	if err != nil {
		return nil, err
	}
	data := n.data
	if rng != nil {
		if rng.Start < 0 || rng.End >= int64(len(data)) || rng.Start > rng.End {
			return nil, webdav.ErrRangeNotSatisfiable
		}
		data = data[rng.Start : rng.End+1]
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *resource) SetStream(ctx context.Context, src io.Reader, user webdav.IUser, mediaType string) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read content failed, err:%w", err)
	}
	p := r.GetCanonicalPath()
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	n, ok := r.fs.nodes[p]
	if !ok {
		return fmt.Errorf("path:%s, %w", p, webdav.ErrResourceNotFound)
	}
	if n.collection {
		return webdav.ErrMethodNotSupported
	}
	n.data = data
	n.mediaType = backend.DetectMediaType(r.GetCanonicalName(), mediaType, data)
	n.mtime = time.Now()
	return nil
}

func (r *resource) Create(ctx context.Context, user webdav.IUser) error {
	now := time.Now()
	n := &node{collection: r.IsCollection(), ctime: now, mtime: now}
	r.fs.mu.Lock()
	defer r.fs.mu.Unlock()
	return r.fs.insert(r.GetCanonicalPath(), n)
}

func (r *resource) Delete(ctx context.Context, user webdav.IUser) error {
	r.fs.mu.Lock()
	removed := r.fs.remove(r.GetCanonicalPath())
	r.fs.mu.Unlock()
	if len(removed) == 0 {
		return webdav.ErrResourceNotFound
	}
	return r.fs.dropMeta(ctx, removed...)
}

func (r *resource) Copy(ctx context.Context, dst webdav.IResource, user webdav.IUser) error {
	n, err := r.node()
	if err != nil {
		return err
	}
	now := time.Now()
	cp := &node{collection: n.collection, ctime: now, mtime: now}
	if !n.collection {
		cp.data = n.data
		cp.mediaType = n.mediaType
	}
	r.fs.mu.Lock()
	err = r.fs.insert(dst.GetCanonicalPath(), cp)
	r.fs.mu.Unlock()
	if err != nil {
		return err
	}
	return r.fs.props.CopyProps(ctx, r.GetCanonicalPath(), dst.GetCanonicalPath())
}

func (r *resource) Move(ctx context.Context, dst webdav.IResource, user webdav.IUser) error {
	src := r.GetCanonicalPath()
	r.fs.mu.Lock()
	n, ok := r.fs.nodes[src]
	if !ok {
		r.fs.mu.Unlock()
		return webdav.ErrResourceNotFound
	}
	if n.collection {
		r.fs.mu.Unlock()
		return fmt.Errorf("move collection directly, path:%s, %w", src, webdav.ErrConflict)
	}
	if err := r.fs.insert(dst.GetCanonicalPath(), n); err != nil {
		r.fs.mu.Unlock()
		return err
	}
	delete(r.fs.nodes, src)
	r.fs.mu.Unlock()
	if err := r.DropLocks(ctx); err != nil {
		return err
	}
	return r.fs.props.MoveProps(ctx, src, dst.GetCanonicalPath())
}

func (r *resource) GetLength(ctx context.Context) (int64, error) {
	n, err := r.node()
	if err != nil {
		return 0, err
	}
	return int64(len(n.data)), nil
}

func (r *resource) GetEtag(ctx context.Context) (string, error) {
	n, err := r.node()
	if err != nil {
		return "", err
	}
	if n.collection {
		return utils.BuildETag(r.GetCanonicalPath(), fmt.Sprint(n.mtime.UnixNano())), nil
	}
	return utils.ContentETag(n.data, n.mtime.UnixNano()), nil
}

func (r *resource) GetMediaType(ctx context.Context) (string, error) {
	n, err := r.node()
	if err != nil {
		return "", err
	}
	if n.collection {
		return "httpd/unix-directory", nil
	}
	if len(n.mediaType) == 0 {
		return backend.DetectMediaType(r.GetCanonicalName(), "", n.data), nil
	}
	return n.mediaType, nil
}

func (r *resource) GetLastModified(ctx context.Context) (time.Time, error) {
	n, err := r.node()
	if err != nil {
		return time.Time{}, err
	}
	return n.mtime, nil
}

func (r *resource) GetCreationTime(ctx context.Context) (time.Time, error) {
	n, err := r.node()
	if err != nil {
		return time.Time{}, err
	}
	return n.ctime, nil
}

func (r *resource) GetInternalMembers(ctx context.Context, user webdav.IUser) ([]webdav.IResource, error) {
	if !r.IsCollection() {
		return nil, nil
	}
	paths := r.fs.members(r.GetCanonicalPath())
	rs := make([]webdav.IResource, 0, len(paths))
	for _, p := range paths {
		n, ok := r.fs.lookup(p)
		if !ok {
			continue
		}
		rs = append(rs, r.fs.newResource(p, r.Base(), n.collection))
	}
	return rs, nil
}
