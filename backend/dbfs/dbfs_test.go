package dbfs

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/tgdav/blockio"
	"github.com/xxxsen/tgdav/blockio/mem"
	"github.com/xxxsen/tgdav/db"
	"github.com/xxxsen/tgdav/webdav"
)

var (
	dbfile = "/tmp/sqlite_tgdav_dbfs_test.db"
	client database.IDatabase
	bio    blockio.IBlockIO
	fs     *FS
)

type testUser string

func (u testUser) GetUsername() string {
	return string(u)
}

func (u testUser) IsDefaultUser() bool {
	return len(u) == 0
}

var testBase, _ = url.Parse("http://localhost/dav/")

func setup() {
	tearDown()
	var err error
	client, err = db.Open(dbfile)
	if err != nil {
		panic(err)
	}
	bio, err = mem.New(16)
	if err != nil {
		panic(err)
	}
	rc, err := blockio.NewReadCache(&blockio.ReadCacheConfig{CacheSize: 1024, KeySizeLimit: 8})
	if err != nil {
		panic(err)
	}
	fs, err = New(context.Background(), client, bio, WithReadCache(rc), WithPropCacheSize(16))
	if err != nil {
		panic(err)
	}
}

func tearDown() {
	if client != nil {
		_ = client.Close()
	}
	os.RemoveAll(dbfile)
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	tearDown()
	if code != 0 {
		os.Exit(code)
	}
}

func resolve(p string, collection bool) *url.URL {
	return webdav.JoinURL(testBase, p, collection)
}

func mustCreate(t *testing.T, p string, collection bool, content string) webdav.IResource {
	ctx := context.Background()
	var res webdav.IResource
	var err error
	if collection {
		res, err = fs.NewCollection(ctx, resolve(p, true), testBase)
	} else {
		res, err = fs.NewResource(ctx, resolve(p, false), testBase)
	}
	require.NoError(t, err)
	require.NoError(t, res.Create(ctx, testUser("abc")))
	if !collection {
		require.NoError(t, res.SetStream(ctx, strings.NewReader(content), testUser("abc"), ""))
	}
	return res
}

func readAll(t *testing.T, res webdav.IResource, rng *webdav.Range) string {
	rc, err := res.GetStream(context.Background(), rng)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(raw)
}

func TestRootExists(t *testing.T) {
	ctx := context.Background()
	root, err := fs.GetResource(ctx, testBase, testBase)
	require.NoError(t, err)
	assert.True(t, root.IsCollection())
	again, err := New(ctx, client, bio)
	require.NoError(t, err)
	_, err = again.GetResource(ctx, testBase, testBase)
	assert.NoError(t, err)
}

func TestCreateAndRead(t *testing.T) {
	ctx := context.Background()
	mustCreate(t, "/t1", true, "")
	mustCreate(t, "/t1/small.txt", false, "hello")
	mustCreate(t, "/t1/big.txt", false, "hello world")

	small, err := fs.GetResource(ctx, resolve("/t1/small.txt", false), testBase)
	require.NoError(t, err)
	assert.Equal(t, "hello", readAll(t, small, nil))
	assert.Equal(t, "ell", readAll(t, small, &webdav.Range{Start: 1, End: 3}))

	big, err := fs.GetResource(ctx, resolve("/t1/big.txt", false), testBase)
	require.NoError(t, err)
	assert.Equal(t, "hello world", readAll(t, big, nil))
	assert.Equal(t, "world", readAll(t, big, &webdav.Range{Start: 6, End: 10}))
	_, err = big.GetStream(ctx, &webdav.Range{Start: 0, End: 11})
	assert.ErrorIs(t, err, webdav.ErrRangeNotSatisfiable)

	size, err := big.GetLength(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)
	mt, err := big.GetMediaType(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mt, "text/plain"))

	col, err := fs.GetResource(ctx, resolve("/t1", false), testBase)
	require.NoError(t, err)
	assert.True(t, col.IsCollection())
	members, err := col.GetInternalMembers(ctx, testUser("abc"))
	require.NoError(t, err)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.GetCanonicalName())
	}
	assert.Equal(t, []string{"big.txt", "small.txt"}, names)

	_, err = fs.GetResource(ctx, resolve("/t1/missing", false), testBase)
	assert.ErrorIs(t, err, webdav.ErrResourceNotFound)
	_, err = fs.GetResource(ctx, resolve("/t1/small.txt/x", false), testBase)
	assert.ErrorIs(t, err, webdav.ErrResourceNotFound)
}

func TestCreateNeedsParent(t *testing.T) {
	ctx := context.Background()
	res, err := fs.NewResource(ctx, resolve("/t2/y", false), testBase)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Create(ctx, testUser("abc")), webdav.ErrResourceTreeNotComplete)
	mustCreate(t, "/t2f", false, "data")
	res, err = fs.NewResource(ctx, resolve("/t2f/y", false), testBase)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Create(ctx, testUser("abc")), webdav.ErrResourceTreeNotComplete)
	res, err = fs.NewResource(ctx, resolve("/t2f", false), testBase)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Create(ctx, testUser("abc")), webdav.ErrResourceExists)
}

func TestOverwriteAndLimit(t *testing.T) {
	ctx := context.Background()
	res := mustCreate(t, "/t3", false, "one")
	e1, err := res.GetEtag(ctx)
	require.NoError(t, err)
	require.NoError(t, res.SetStream(ctx, strings.NewReader("two"), testUser("abc"), "text/x-test"))
	e2, err := res.GetEtag(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, e1, e2)
	assert.Equal(t, "two", readAll(t, res, nil))
	mt, err := res.GetMediaType(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text/x-test", mt)

	err = res.SetStream(ctx, strings.NewReader(strings.Repeat("x", 17)), testUser("abc"), "")
	assert.ErrorIs(t, err, webdav.ErrInsufficientStorage)
	assert.Equal(t, "two", readAll(t, res, nil))
}

func TestDeleteTree(t *testing.T) {
	ctx := context.Background()
	col := mustCreate(t, "/t4", true, "")
	file := mustCreate(t, "/t4/f", false, "data")
	_, err := file.CreateLockForUser(ctx, testUser("abc"), &webdav.LockOptions{
		Scope: webdav.LockScopeExclusive, Depth: webdav.DepthZero, Timeout: time.Hour,
	})
	require.NoError(t, err)
	props, err := file.GetProperties(ctx)
	require.NoError(t, err)
	require.NoError(t, props.Set(ctx, "urn:x%%k", "v"))

	require.NoError(t, col.Delete(ctx, testUser("abc")))
	exists, err := file.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	locks, err := file.GetLocks(ctx)
	require.NoError(t, err)
	assert.Len(t, locks, 0)
	assert.ErrorIs(t, col.Delete(ctx, testUser("abc")), webdav.ErrResourceNotFound)

	mustCreate(t, "/t4", true, "")
	again := mustCreate(t, "/t4/f", false, "data")
	props, err = again.GetProperties(ctx)
	require.NoError(t, err)
	dead, err := props.ListDead(ctx)
	require.NoError(t, err)
	assert.Len(t, dead, 0)
}

func TestCopyAndMove(t *testing.T) {
	ctx := context.Background()
	mustCreate(t, "/t5", true, "")
	src := mustCreate(t, "/t5/src", false, "payload")
	props, err := src.GetProperties(ctx)
	require.NoError(t, err)
	require.NoError(t, props.Set(ctx, "urn:x%%k", "v"))

	cp, err := fs.NewResource(ctx, resolve("/t5/copy", false), testBase)
	require.NoError(t, err)
	require.NoError(t, src.Copy(ctx, cp, testUser("abc")))
	assert.Equal(t, "payload", readAll(t, cp, nil))
	cprops, err := cp.GetProperties(ctx)
	require.NoError(t, err)
	v, err := cprops.Get(ctx, "urn:x%%k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, cp.Delete(ctx, testUser("abc")))
	assert.Equal(t, "payload", readAll(t, src, nil))

	mustCreate(t, "/t5/dir", true, "")
	mv, err := fs.NewResource(ctx, resolve("/t5/dir/moved", false), testBase)
	require.NoError(t, err)
	require.NoError(t, src.Move(ctx, mv, testUser("abc")))
	assert.Equal(t, "payload", readAll(t, mv, nil))
	exists, err := src.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	mprops, err := mv.GetProperties(ctx)
	require.NoError(t, err)
	v, err = mprops.Get(ctx, "urn:x%%k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	dir, err := fs.GetResource(ctx, resolve("/t5/dir", true), testBase)
	require.NoError(t, err)
	dirCopy, err := fs.NewCollection(ctx, resolve("/t5/dir2", true), testBase)
	require.NoError(t, err)
	require.NoError(t, dir.Copy(ctx, dirCopy, testUser("abc")))
	members, err := dirCopy.GetInternalMembers(ctx, testUser("abc"))
	require.NoError(t, err)
	assert.Len(t, members, 0)
	assert.ErrorIs(t, dir.Move(ctx, dirCopy, testUser("abc")), webdav.ErrConflict)
}
