package lockstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/tgdav/db"
	"github.com/xxxsen/tgdav/webdav"
)

var (
	dbfile = "/tmp/sqlite_lockstore_test.db"
	dbc    database.IDatabase
)

func setup() {
	tearDown()
	var err error
	dbc, err = db.Open(dbfile)
	if err != nil {
		panic(err)
	}
}

func tearDown() {
	if dbc != nil {
		_ = dbc.Close()
	}
	_ = os.Remove(dbfile)
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	tearDown()
	if code != 0 {
		os.Exit(code)
	}
}

func stores() map[string]ILockStore {
	return map[string]ILockStore{
		"mem": NewMemLockStore(),
		"db":  NewDBLockStore(dbc, db.LockTable),
	}
}

func newTestLock(path string, token string, timeout time.Duration) *webdav.Lock {
	return &webdav.Lock{
		Token:     token,
		Path:      path,
		CreatedAt: time.Now(),
		Timeout:   timeout,
		Scope:     webdav.LockScopeExclusive,
		Depth:     webdav.DepthInfinity,
		Owner:     "<D:href>me</D:href>",
		Username:  "abc",
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores() {
		t.Run(name, func(t *testing.T) {
			path := "/save/" + name
			l := newTestLock(path, "opaquelocktoken:save-"+name, time.Hour)
			require.NoError(t, st.SaveLock(ctx, l))
			locks, err := st.GetLocks(ctx, path+"/")
			require.NoError(t, err)
			require.Len(t, locks, 1)
			assert.Equal(t, l.Token, locks[0].Token)
			assert.Equal(t, l.Owner, locks[0].Owner)
			assert.Equal(t, l.Username, locks[0].Username)
			assert.Equal(t, time.Hour, locks[0].Timeout)
			assert.False(t, locks[0].Provisional)

			l.Provisional = true
			l.Timeout = 2 * time.Hour
			require.NoError(t, st.SaveLock(ctx, l))
			locks, err = st.GetLocks(ctx, path)
			require.NoError(t, err)
			require.Len(t, locks, 1)
			assert.True(t, locks[0].Provisional)
			assert.Equal(t, 2*time.Hour, locks[0].Timeout)
		})
	}
}

func TestDeleteLockIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores() {
		t.Run(name, func(t *testing.T) {
			path := "/delete/" + name
			l := newTestLock(path, "opaquelocktoken:delete-"+name, time.Hour)
			require.NoError(t, st.SaveLock(ctx, l))
			assert.NoError(t, st.DeleteLock(ctx, l.Token))
			assert.NoError(t, st.DeleteLock(ctx, l.Token))
			locks, err := st.GetLocks(ctx, path)
			assert.NoError(t, err)
			assert.Len(t, locks, 0)
		})
	}
}

func TestExpiredLocksAreDropped(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores() {
		t.Run(name, func(t *testing.T) {
			path := "/expire/" + name
			l := newTestLock(path, "opaquelocktoken:expire-"+name, time.Second)
			l.CreatedAt = time.Now().Add(-time.Minute)
			require.NoError(t, st.SaveLock(ctx, l))
			alive := newTestLock(path, "opaquelocktoken:alive-"+name, time.Hour)
			require.NoError(t, st.SaveLock(ctx, alive))
			locks, err := st.GetLocks(ctx, path)
			require.NoError(t, err)
			require.Len(t, locks, 1)
			assert.Equal(t, alive.Token, locks[0].Token)
		})
	}
}

func TestDeleteLocksByPath(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores() {
		t.Run(name, func(t *testing.T) {
			path := "/bypath/" + name
			require.NoError(t, st.SaveLock(ctx, newTestLock(path, "opaquelocktoken:p1-"+name, time.Hour)))
			require.NoError(t, st.SaveLock(ctx, newTestLock(path, "opaquelocktoken:p2-"+name, time.Hour)))
			require.NoError(t, st.SaveLock(ctx, newTestLock(path+"/child", "opaquelocktoken:p3-"+name, time.Hour)))
			require.NoError(t, st.DeleteLocksByPath(ctx, path))
			locks, err := st.GetLocks(ctx, path)
			require.NoError(t, err)
			assert.Len(t, locks, 0)
			locks, err = st.GetLocks(ctx, path+"/child")
			require.NoError(t, err)
			assert.Len(t, locks, 1)
		})
	}
}
