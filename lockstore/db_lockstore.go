package lockstore

import (
	"context"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/webdav"
	"go.uber.org/zap"
)

type lockTab struct {
	Id          uint64 `json:"id"`
	LockToken   string `json:"lock_token"`
	FilePath    string `json:"file_path"`
	LockScope   string `json:"lock_scope"`
	LockDepth   string `json:"lock_depth"`
	Owner       string `json:"owner"`
	Username    string `json:"username"`
	Provisional int32  `json:"provisional"`
	Ctime       int64  `json:"ctime"`
	Timeout     int64  `json:"timeout"`
}

func (t *lockTab) toLock() *webdav.Lock {
	return &webdav.Lock{
		Token:       t.LockToken,
		Path:        t.FilePath,
		CreatedAt:   time.UnixMilli(t.Ctime),
		Timeout:     time.Duration(t.Timeout) * time.Second,
		Scope:       t.LockScope,
		Depth:       t.LockDepth,
		Provisional: t.Provisional != 0,
		Owner:       t.Owner,
		Username:    t.Username,
	}
}

type dbLockStore struct {
	db  database.IDatabase
	tab string
}

func NewDBLockStore(db database.IDatabase, tab string) ILockStore {
	return &dbLockStore{db: db, tab: tab}
}

func (d *dbLockStore) table() string {
	return d.tab
}

func (d *dbLockStore) GetLocks(ctx context.Context, path string) ([]*webdav.Lock, error) {
	where := map[string]interface{}{
		"file_path": webdav.CleanPath(path),
		"_orderby":  "ctime asc",
	}
	rows := make([]*lockTab, 0, 2)
	if err := dbkit.SimpleQuery(ctx, d.db, d.table(), where, &rows, dbkit.ScanWithTagName("json")); err != nil {
		return nil, fmt.Errorf("query locks failed, path:%s, err:%w", path, err)
	}
	locks := make([]*webdav.Lock, 0, len(rows))
	for _, row := range rows {
		locks = append(locks, row.toLock())
	}
	alive, expired := splitExpired(locks, time.Now())
	for _, l := range expired {
		if err := d.DeleteLock(ctx, l.Token); err != nil {
			logutil.GetLogger(ctx).Error("remove expired lock failed", zap.String("token", l.Token), zap.Error(err))
		}
	}
	return alive, nil
}

func (d *dbLockStore) SaveLock(ctx context.Context, l *webdav.Lock) error {
	provisional := 0
	if l.Provisional {
		provisional = 1
	}
	data := []map[string]interface{}{
		{
			"lock_token":  l.Token,
			"file_path":   webdav.CleanPath(l.Path),
			"lock_scope":  l.Scope,
			"lock_depth":  l.Depth,
			"owner":       l.Owner,
			"username":    l.Username,
			"provisional": provisional,
			"ctime":       l.CreatedAt.UnixMilli(),
			"timeout":     int64(l.Timeout / time.Second),
		},
	}
	return d.db.OnTransation(ctx, func(ctx context.Context, tx database.IQueryExecer) error {
		sql, args, err := builder.BuildDelete(d.table(), map[string]interface{}{"lock_token": l.Token})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
			return err
		}
		sql, args, err = builder.BuildInsert(d.table(), data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert lock failed, token:%s, err:%w", l.Token, err)
		}
		return nil
	})
}

func (d *dbLockStore) deleteWhere(ctx context.Context, where map[string]interface{}) error {
	sql, args, err := builder.BuildDelete(d.table(), where)
	if err != nil {
		return err
	}
	if _, err := d.db.ExecContext(ctx, sql, args...); err != nil {
		return err
	}
	return nil
}

func (d *dbLockStore) DeleteLock(ctx context.Context, token string) error {
	return d.deleteWhere(ctx, map[string]interface{}{"lock_token": token})
}

func (d *dbLockStore) DeleteLocksByPath(ctx context.Context, path string) error {
	return d.deleteWhere(ctx, map[string]interface{}{"file_path": webdav.CleanPath(path)})
}
