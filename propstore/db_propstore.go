package propstore

import (
	"context"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/tgdav/webdav"
)

type propertyTab struct {
	Id        uint64 `json:"id"`
	FilePath  string `json:"file_path"`
	PropName  string `json:"prop_name"`
	PropValue string `json:"prop_value"`
	Ctime     int64  `json:"ctime"`
	Mtime     int64  `json:"mtime"`
}

type dbPropStore struct {
	db  database.IDatabase
	tab string
}

func NewDBPropStore(db database.IDatabase, tab string) IPropStore {
	return &dbPropStore{db: db, tab: tab}
}

func (d *dbPropStore) table() string {
	return d.tab
}

func (d *dbPropStore) txGetProps(ctx context.Context, q database.IQueryer, path string) (map[string]string, error) {
	where := map[string]interface{}{
		"file_path": path,
	}
	rows := make([]*propertyTab, 0, 8)
	if err := dbkit.SimpleQuery(ctx, q, d.table(), where, &rows, dbkit.ScanWithTagName("json")); err != nil {
		return nil, fmt.Errorf("query props failed, path:%s, err:%w", path, err)
	}
	rs := make(map[string]string, len(rows))
	for _, row := range rows {
		rs[row.PropName] = row.PropValue
	}
	return rs, nil
}

func (d *dbPropStore) txDelete(ctx context.Context, exec database.IExecer, where map[string]interface{}) error {
	sql, args, err := builder.BuildDelete(d.table(), where)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, sql, args...); err != nil {
		return err
	}
	return nil
}

func (d *dbPropStore) txInsert(ctx context.Context, exec database.IExecer, path string, props map[string]string) error {
	if len(props) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	data := make([]map[string]interface{}, 0, len(props))
	for k, v := range props {
		data = append(data, map[string]interface{}{
			"file_path":  path,
			"prop_name":  k,
			"prop_value": v,
			"ctime":      now,
			"mtime":      now,
		})
	}
	sql, args, err := builder.BuildInsert(d.table(), data)
	if err != nil {
		return err
	}
	if _, err := exec.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert props failed, path:%s, err:%w", path, err)
	}
	return nil
}

func (d *dbPropStore) GetProps(ctx context.Context, path string) (map[string]string, error) {
	return d.txGetProps(ctx, d.db, webdav.CleanPath(path))
}

func (d *dbPropStore) Apply(ctx context.Context, path string, set map[string]string, remove []string) error {
	path = webdav.CleanPath(path)
	names := make([]interface{}, 0, len(set)+len(remove))
	for k := range set {
		names = append(names, k)
	}
	for _, k := range remove {
		names = append(names, k)
	}
	if len(names) == 0 {
		return nil
	}
	return d.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		if err := d.txDelete(ctx, tx, map[string]interface{}{
			"file_path":    path,
			"prop_name in": names,
		}); err != nil {
			return err
		}
		return d.txInsert(ctx, tx, path, set)
	})
}

func (d *dbPropStore) CopyProps(ctx context.Context, src string, dst string) error {
	src, dst = webdav.CleanPath(src), webdav.CleanPath(dst)
	return d.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		props, err := d.txGetProps(ctx, tx, src)
		if err != nil {
			return err
		}
		if err := d.txDelete(ctx, tx, map[string]interface{}{"file_path": dst}); err != nil {
			return err
		}
		return d.txInsert(ctx, tx, dst, props)
	})
}

func (d *dbPropStore) MoveProps(ctx context.Context, src string, dst string) error {
	src, dst = webdav.CleanPath(src), webdav.CleanPath(dst)
	return d.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		if err := d.txDelete(ctx, tx, map[string]interface{}{"file_path": dst}); err != nil {
			return err
		}
		sql, args, err := builder.BuildUpdate(d.table(), map[string]interface{}{"file_path": src}, map[string]interface{}{
			"file_path": dst,
			"mtime":     time.Now().UnixMilli(),
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
			return err
		}
		return nil
	})
}

func (d *dbPropStore) DeleteProps(ctx context.Context, path string) error {
	return d.txDelete(ctx, d.db, map[string]interface{}{"file_path": webdav.CleanPath(path)})
}
