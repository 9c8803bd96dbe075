package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/tgdav/blockio"
	fileutils "github.com/xxxsen/tgdav/utils"
)

const (
	defaultMaxFileSize = 1024 * 1024 * 1024
)

type config struct {
	Dir         string `json:"dir"`
	MaxFileSize int64  `json:"max_file_size"`
}

type localBlockIO struct {
	dir     string
	maxSize int64
}

func (l *localBlockIO) Name() string {
	return "local"
}

func (l *localBlockIO) MaxFileSize() int64 {
	return l.maxSize
}

// location spreads blobs over 256 buckets named by the key hash.
func (l *localBlockIO) location(key string) string {
	h := fileutils.HashKey(key)
	return filepath.Join(l.dir, h[:2], key+".blob")
}

func (l *localBlockIO) Upload(ctx context.Context, r io.Reader) (string, int64, error) {
	key := uuid.NewString()
	n, err := fileutils.SaveStreamToFile(l.location(key), r)
	if err != nil {
		return "", 0, fmt.Errorf("save blob failed, err:%w", err)
	}
	return key, n, nil
}

func (l *localBlockIO) Download(ctx context.Context, filekey string, pos int64) (io.ReadCloser, error) {
	f, err := os.Open(l.location(filekey))
	if err != nil {
		return nil, fmt.Errorf("open blob failed, key:%s, err:%w", filekey, err)
	}
	if pos > 0 {
		if _, err := f.Seek(pos, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seek blob failed, key:%s, pos:%d, err:%w", filekey, pos, err)
		}
	}
	return f, nil
}

func (l *localBlockIO) Remove(ctx context.Context, filekey string) error {
	if err := os.Remove(l.location(filekey)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob failed, key:%s, err:%w", filekey, err)
	}
	return nil
}

func New(dir string, maxSize int64) (blockio.IBlockIO, error) {
	if len(dir) == 0 {
		return nil, fmt.Errorf("no blob dir found")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create blob dir failed, err:%w", err)
	}
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	return &localBlockIO{dir: dir, maxSize: maxSize}, nil
}

func create(args interface{}) (blockio.IBlockIO, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(c.Dir, c.MaxFileSize)
}

func init() {
	blockio.Register("local", create)
}
