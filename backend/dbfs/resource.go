package dbfs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/tgdav/backend"
	"github.com/xxxsen/tgdav/blockio"
	"github.com/xxxsen/tgdav/utils"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	sniffSize = 3072
)

type resource struct {
	backend.Location
	backend.LockSupport
	fs *FS
}

func (r *resource) entry(ctx context.Context) (*entryTab, error) {
	return r.fs.stat(ctx, r.GetCanonicalPath())
}

func (r *resource) Exists(ctx context.Context) (bool, error) {
	_, ok, err := r.fs.txLookup(ctx, r.fs.db, r.GetCanonicalPath())
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *resource) GetProperties(ctx context.Context) (webdav.IProperties, error) {
	return backend.NewProperties(r, r.fs.props), nil
}

type limitReadCloser struct {
	io.Reader
	io.Closer
}

func (r *resource) openBlob(ctx context.Context, ent *entryTab, start int64) (io.ReadCloser, error) {
	if r.fs.cache != nil && r.fs.cache.Cacheable(ent.FileSize) {
		rsc, err := r.fs.cache.Load(ctx, ent.RefData, ent.FileSize, func(ctx context.Context) (io.ReadCloser, error) {
			return r.fs.bio.Download(ctx, ent.RefData, 0)
		})
		if err != nil {
			return nil, err
		}
		if _, err := rsc.Seek(start, io.SeekStart); err != nil {
			_ = rsc.Close()
			return nil, err
		}
		return rsc, nil
	}
	return r.fs.bio.Download(ctx, ent.RefData, start)
}

func (r *resource) GetStream(ctx context.Context, rng *webdav.Range) (io.ReadCloser, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return nil, err
	}
	if ent.isDir() {
		return nil, webdav.ErrMethodNotSupported
	}
	start, length := int64(0), ent.FileSize
	if rng != nil {
		if rng.Start < 0 || rng.End >= ent.FileSize || rng.Start > rng.End {
			return nil, webdav.ErrRangeNotSatisfiable
		}
		start, length = rng.Start, rng.Length()
	}
	if len(ent.RefData) == 0 || length == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	rc, err := r.openBlob(ctx, ent, start)
	if err != nil {
		return nil, fmt.Errorf("open blob failed, key:%s, err:%w", ent.RefData, err)
	}
	return limitReadCloser{Reader: io.LimitReader(rc, length), Closer: rc}, nil
}

type sniffReader struct {
	r    io.Reader
	head []byte
}

func (s *sniffReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if room := sniffSize - len(s.head); room > 0 && n > 0 {
		s.head = append(s.head, p[:min(n, room)]...)
	}
	return n, err
}

func (r *resource) SetStream(ctx context.Context, src io.Reader, user webdav.IUser, mediaType string) error {
	ent, err := r.entry(ctx)
	if err != nil {
		return err
	}
	if ent.isDir() {
		return webdav.ErrMethodNotSupported
	}
	limit := r.fs.bio.MaxFileSize()
	sniff := &sniffReader{r: io.LimitReader(src, limit+1)}
	key, size, err := r.fs.bio.Upload(ctx, sniff)
	if err != nil {
		return fmt.Errorf("upload blob failed, err:%w", err)
	}
	if size > limit {
		r.fs.dropBlobs(ctx, key)
		return fmt.Errorf("file size out of limit, max:%d, %w", limit, webdav.ErrInsufficientStorage)
	}
	update := map[string]interface{}{
		"ref_data":   key,
		"file_size":  size,
		"media_type": backend.DetectMediaType(r.GetCanonicalName(), mediaType, sniff.head),
		"mtime":      time.Now().UnixMilli(),
	}
	if err := r.fs.txUpdateEntry(ctx, r.fs.db, ent.EntryId, update); err != nil {
		r.fs.dropBlobs(ctx, key)
		return err
	}
	r.fs.dropBlobs(ctx, ent.RefData)
	return nil
}

func (r *resource) insert(ctx context.Context, ent *entryTab) error {
	p := r.GetCanonicalPath()
	return r.fs.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		parent, err := r.fs.txLookupParent(ctx, tx, p)
		if err != nil {
			return err
		}
		_, exist, err := r.fs.txSearchEntry(ctx, tx, parent.EntryId, r.GetCanonicalName())
		if err != nil {
			return err
		}
		if exist {
			return fmt.Errorf("path:%s, %w", p, webdav.ErrResourceExists)
		}
		ent.ParentEntryId = parent.EntryId
		ent.FileName = r.GetCanonicalName()
		if _, err := r.fs.txCreateEntry(ctx, tx, ent); err != nil {
			return err
		}
		return r.fs.txTouch(ctx, tx, parent.EntryId, ent.Mtime)
	})
}

func (r *resource) Create(ctx context.Context, user webdav.IUser) error {
	now := time.Now().UnixMilli()
	ent := &entryTab{FileKind: fileKindFile, FileMode: defaultFileMode, Ctime: now, Mtime: now}
	if r.IsCollection() {
		ent.FileKind = fileKindDir
		ent.FileMode = defaultDirMode
	}
	return r.insert(ctx, ent)
}

func (r *resource) Delete(ctx context.Context, user webdav.IUser) error {
	p := r.GetCanonicalPath()
	var paths, keys []string
	if err := r.fs.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		ent, ok, err := r.fs.txLookup(ctx, tx, p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("path:%s, %w", p, webdav.ErrResourceNotFound)
		}
		return r.fs.txRemoveTree(ctx, tx, p, ent, func(p string, ent *entryTab) {
			paths = append(paths, p)
			keys = append(keys, ent.RefData)
		})
	}); err != nil {
		return err
	}
	r.fs.dropBlobs(ctx, keys...)
	return r.fs.dropMeta(ctx, paths...)
}

// Copy gives the destination its own blob.
func (r *resource) Copy(ctx context.Context, dst webdav.IResource, user webdav.IUser) error {
	ent, err := r.entry(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	cp := &entryTab{
		FileKind:  ent.FileKind,
		FileMode:  ent.FileMode,
		MediaType: ent.MediaType,
		Ctime:     now,
		Mtime:     now,
	}
	if !ent.isDir() && len(ent.RefData) > 0 {
		key, size, err := blockio.Clone(ctx, r.fs.bio, ent.RefData)
		if err != nil {
			return err
		}
		cp.RefData, cp.FileSize = key, size
	}
	target := &resource{Location: backend.NewLocation(dst.GetCanonicalPath(), r.Base(), dst.IsCollection()), fs: r.fs}
	if err := target.insert(ctx, cp); err != nil {
		r.fs.dropBlobs(ctx, cp.RefData)
		return err
	}
	return r.fs.props.CopyProps(ctx, r.GetCanonicalPath(), dst.GetCanonicalPath())
}

func (r *resource) Move(ctx context.Context, dst webdav.IResource, user webdav.IUser) error {
	src, to := r.GetCanonicalPath(), dst.GetCanonicalPath()
	if err := r.fs.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		ent, ok, err := r.fs.txLookup(ctx, tx, src)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("path:%s, %w", src, webdav.ErrResourceNotFound)
		}
		if ent.isDir() {
			return fmt.Errorf("move collection directly, path:%s, %w", src, webdav.ErrConflict)
		}
		parent, err := r.fs.txLookupParent(ctx, tx, to)
		if err != nil {
			return err
		}
		name := dst.GetCanonicalName()
		if _, exist, err := r.fs.txSearchEntry(ctx, tx, parent.EntryId, name); err != nil {
			return err
		} else if exist {
			return fmt.Errorf("path:%s, %w", to, webdav.ErrResourceExists)
		}
		if err := r.fs.txChangeParent(ctx, tx, ent.EntryId, parent.EntryId, name); err != nil {
			return err
		}
		return r.fs.txTouch(ctx, tx, parent.EntryId, time.Now().UnixMilli())
	}); err != nil {
		return err
	}
	if err := r.DropLocks(ctx); err != nil {
		return err
	}
	return r.fs.props.MoveProps(ctx, src, to)
}

func (r *resource) GetLength(ctx context.Context) (int64, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return 0, err
	}
	return ent.FileSize, nil
}

func (r *resource) GetEtag(ctx context.Context) (string, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return "", err
	}
	if ent.isDir() {
		return utils.BuildETag(r.GetCanonicalPath(), fmt.Sprint(ent.Mtime)), nil
	}
	return utils.BuildETag(utils.EncodeFileId(ent.EntryId), ent.RefData, fmt.Sprint(ent.FileSize), fmt.Sprint(ent.Mtime)), nil
}

func (r *resource) GetMediaType(ctx context.Context) (string, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return "", err
	}
	if ent.isDir() {
		return "httpd/unix-directory", nil
	}
	if len(ent.MediaType) == 0 {
		return backend.DetectMediaType(r.GetCanonicalName(), "", nil), nil
	}
	return ent.MediaType, nil
}

func (r *resource) GetLastModified(ctx context.Context) (time.Time, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return ent.mtime(), nil
}

func (r *resource) GetCreationTime(ctx context.Context) (time.Time, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return ent.ctime(), nil
}

func (r *resource) GetInternalMembers(ctx context.Context, user webdav.IUser) ([]webdav.IResource, error) {
	ent, err := r.entry(ctx)
	if err != nil {
		return nil, err
	}
	if !ent.isDir() {
		return nil, nil
	}
	items, err := r.fs.txListAllDir(ctx, r.fs.db, ent.EntryId)
	if err != nil {
		return nil, fmt.Errorf("list members failed, path:%s, err:%w", r.GetCanonicalPath(), err)
	}
	rs := make([]webdav.IResource, 0, len(items))
	for _, item := range items {
		rs = append(rs, r.fs.newResource(joinPath(r.GetCanonicalPath(), item.FileName), r.Base(), item.isDir()))
	}
	return rs, nil
}
