package dbfs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/tgdav/webdav"
)

const (
	defaultMaxDepthLimit = 32
	defaultListPageSize  = 128
	rootName             = "/"
)

func splitItems(p string) []string {
	p = webdav.CleanPath(p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

func (fs *FS) table() string {
	return fs.tab
}

func (fs *FS) txSearchEntry(ctx context.Context, q database.IQueryer, pid uint64, name string) (*entryTab, bool, error) {
	where := map[string]interface{}{
		"parent_entry_id": pid,
		"file_name":       name,
		"_limit":          []uint{0, 1},
	}
	rs := make([]*entryTab, 0, 1)
	if err := dbkit.SimpleQuery(ctx, q, fs.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, false, err
	}
	if len(rs) == 0 {
		return nil, false, nil
	}
	return rs[0], true, nil
}

func (fs *FS) txGetRoot(ctx context.Context, q database.IQueryer) (*entryTab, bool, error) {
	return fs.txSearchEntry(ctx, q, 0, rootName)
}

func (fs *FS) txCreateRoot(ctx context.Context, tx database.IQueryExecer) (*entryTab, error) {
	ent, ok, err := fs.txGetRoot(ctx, tx)
	if err != nil {
		return nil, err
	}
	if ok {
		return ent, nil
	}
	now := time.Now().UnixMilli()
	if _, err := fs.txCreateEntry(ctx, tx, &entryTab{
		ParentEntryId: 0,
		FileKind:      fileKindDir,
		Ctime:         now,
		Mtime:         now,
		FileMode:      defaultDirMode,
		FileName:      rootName,
	}); err != nil {
		return nil, err
	}
	ent, ok, err = fs.txGetRoot(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("create root but still not found")
	}
	return ent, nil
}

// txLookup walks p from the root. A plain file in the middle of p means the
// entry does not exist.
func (fs *FS) txLookup(ctx context.Context, q database.IQueryer, p string) (*entryTab, bool, error) {
	ent, ok, err := fs.txGetRoot(ctx, q)
	if err != nil || !ok {
		return nil, false, err
	}
	for _, item := range splitItems(p) {
		if !ent.isDir() {
			return nil, false, nil
		}
		ent, ok, err = fs.txSearchEntry(ctx, q, ent.EntryId, item)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	return ent, true, nil
}

// txLookupParent returns the collection that holds p.
func (fs *FS) txLookupParent(ctx context.Context, q database.IQueryer, p string) (*entryTab, error) {
	if len(splitItems(p)) > defaultMaxDepthLimit {
		return nil, fmt.Errorf("depth out of limit, path:%s, %w", p, webdav.ErrForbidden)
	}
	parent, ok, err := fs.txLookup(ctx, q, webdav.ParentPath(p))
	if err != nil {
		return nil, err
	}
	if !ok || !parent.isDir() {
		return nil, fmt.Errorf("parent of path:%s, %w", p, webdav.ErrResourceTreeNotComplete)
	}
	return parent, nil
}

func (fs *FS) txCreateEntry(ctx context.Context, exec database.IExecer, ent *entryTab) (uint64, error) {
	eid := fs.idfn()
	data := []map[string]interface{}{
		{
			"entry_id":        eid,
			"parent_entry_id": ent.ParentEntryId,
			"ref_data":        ent.RefData,
			"file_kind":       ent.FileKind,
			"ctime":           ent.Ctime,
			"mtime":           ent.Mtime,
			"file_size":       ent.FileSize,
			"file_mode":       ent.FileMode,
			"media_type":      ent.MediaType,
			"file_name":       ent.FileName,
		},
	}
	sql, args, err := builder.BuildInsert(fs.table(), data)
	if err != nil {
		return 0, err
	}
	rs, err := exec.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	cnt, err := rs.RowsAffected()
	if err != nil {
		return 0, err
	}
	if cnt == 0 {
		return 0, fmt.Errorf("insert record failed, no row inserted")
	}
	return eid, nil
}

func (fs *FS) txUpdateEntry(ctx context.Context, exec database.IExecer, entryid uint64, update map[string]interface{}) error {
	where := map[string]interface{}{
		"entry_id": entryid,
	}
	sql, args, err := builder.BuildUpdate(fs.table(), where, update)
	if err != nil {
		return err
	}
	rs, err := exec.ExecContext(ctx, sql, args...)
	if err != nil {
		return err
	}
	cnt, err := rs.RowsAffected()
	if err != nil {
		return err
	}
	if cnt == 0 {
		return fmt.Errorf("entry:%d, no row affected, %w", entryid, webdav.ErrResourceNotFound)
	}
	return nil
}

func (fs *FS) txTouch(ctx context.Context, exec database.IExecer, entryid uint64, now int64) error {
	return fs.txUpdateEntry(ctx, exec, entryid, map[string]interface{}{"mtime": now})
}

func (fs *FS) txChangeParent(ctx context.Context, exec database.IExecer, entryid uint64, parentid uint64, name string) error {
	return fs.txUpdateEntry(ctx, exec, entryid, map[string]interface{}{
		"parent_entry_id": parentid,
		"file_name":       name,
		"mtime":           time.Now().UnixMilli(),
	})
}

func (fs *FS) txRemove(ctx context.Context, exec database.IExecer, entryid uint64) error {
	sql, args, err := builder.BuildDelete(fs.table(), map[string]interface{}{"entry_id": entryid})
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, sql, args...); err != nil {
		return err
	}
	return nil
}

func (fs *FS) txListDir(ctx context.Context, q database.IQueryer, parentid uint64, offset, limit uint) ([]*entryTab, error) {
	where := map[string]interface{}{
		"parent_entry_id": parentid,
		"_orderby":        "file_name asc",
		"_limit":          []uint{offset, limit},
	}
	rs := make([]*entryTab, 0, limit)
	if err := dbkit.SimpleQuery(ctx, q, fs.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	return rs, nil
}

func (fs *FS) txListAllDir(ctx context.Context, q database.IQueryer, parentid uint64) ([]*entryTab, error) {
	rs := make([]*entryTab, 0, defaultListPageSize)
	for offset := uint(0); ; offset += defaultListPageSize {
		ents, err := fs.txListDir(ctx, q, parentid, offset, defaultListPageSize)
		if err != nil {
			return nil, err
		}
		rs = append(rs, ents...)
		if len(ents) < defaultListPageSize {
			break
		}
	}
	return rs, nil
}

// txRemoveTree deletes ent and everything below it, the removed entries are
// reported through fn with their paths.
func (fs *FS) txRemoveTree(ctx context.Context, tx database.IQueryExecer, p string, ent *entryTab, fn func(p string, ent *entryTab)) error {
	if ent.isDir() {
		items, err := fs.txListAllDir(ctx, tx, ent.EntryId)
		if err != nil {
			return fmt.Errorf("scan entry from pid:%d failed, err:%w", ent.EntryId, err)
		}
		for _, item := range items {
			if err := fs.txRemoveTree(ctx, tx, joinPath(p, item.FileName), item, fn); err != nil {
				return err
			}
		}
	}
	if err := fs.txRemove(ctx, tx, ent.EntryId); err != nil {
		return err
	}
	fn(p, ent)
	return nil
}

func joinPath(dir string, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
