package db

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/sqlite"
)

const (
	EntryTable    = "dav_entry_tab"
	PropertyTable = "dav_property_tab"
	LockTable     = "dav_lock_tab"
)

var (
	dbClient database.IDatabase
)

var sqllist = []struct {
	name string
	sql  string
}{
	{
		name: "init_dav_entry_tab",
		sql: `
CREATE TABLE IF NOT EXISTS dav_entry_tab (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id        INTEGER NOT NULL,
    parent_entry_id INTEGER NOT NULL,
    ref_data        TEXT,
    file_kind       INTEGER,
    ctime           INTEGER,
    mtime           INTEGER,
    file_size       INTEGER,
    file_mode       INTEGER,
    media_type      TEXT,
    file_name       TEXT NOT NULL,
    UNIQUE (parent_entry_id, file_name),
    UNIQUE (entry_id)
);
		`,
	},
	{
		name: "init_dav_property_tab",
		sql: `
CREATE TABLE IF NOT EXISTS dav_property_tab (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path   TEXT NOT NULL,
    prop_name   TEXT NOT NULL,
    prop_value  TEXT,
    ctime       INTEGER,
    mtime       INTEGER,
    UNIQUE (file_path, prop_name)
);
		`,
	},
	{
		name: "init_dav_lock_tab",
		sql: `
CREATE TABLE IF NOT EXISTS dav_lock_tab (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    lock_token  TEXT NOT NULL,
    file_path   TEXT NOT NULL,
    lock_scope  TEXT NOT NULL,
    lock_depth  TEXT NOT NULL,
    owner       TEXT,
    username    TEXT,
    provisional INTEGER,
    ctime       INTEGER,
    timeout     INTEGER,
    UNIQUE (lock_token)
);
		`,
	},
	{
		name: "init_dav_lock_tab_path_index",
		sql:  `CREATE INDEX IF NOT EXISTS idx_dav_lock_path ON dav_lock_tab (file_path);`,
	},
}

// Open opens the sqlite file and makes sure every table exists.
func Open(file string) (database.IDatabase, error) {
	ctx := context.Background()
	return sqlite.New(file, func(db database.IDatabase) error {
		for _, item := range sqllist {
			if _, err := db.ExecContext(ctx, item.sql); err != nil {
				return fmt.Errorf("init sql failed, sql:%s, err:%w", item.name, err)
			}
		}
		return nil
	})
}

func InitDB(file string) error {
	db, err := Open(file)
	if err != nil {
		return err
	}
	dbClient = db
	return nil
}

func GetClient() database.IDatabase {
	return dbClient
}
