package mem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/xxxsen/common/utils"
	"github.com/xxxsen/tgdav/blockio"
)

const (
	defaultMaxFileSize = 64 * 1024 * 1024
)

type config struct {
	MaxFileSize int64 `json:"max_file_size"`
}

type memBlockIO struct {
	maxSize int64
	m       sync.Map
}

func (m *memBlockIO) Name() string {
	return "mem"
}

func (m *memBlockIO) MaxFileSize() int64 {
	return m.maxSize
}

func (m *memBlockIO) Upload(ctx context.Context, r io.Reader) (string, int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	key := uuid.NewString()
	m.m.Store(key, raw)
	return key, int64(len(raw)), nil
}

func (m *memBlockIO) Download(ctx context.Context, filekey string, pos int64) (io.ReadCloser, error) {
	raw, ok := m.m.Load(filekey)
	if !ok {
		return nil, fmt.Errorf("key:%s not found", filekey)
	}
	data := raw.([]byte)
	if pos > int64(len(data)) {
		pos = int64(len(data))
	}
	return io.NopCloser(bytes.NewReader(data[pos:])), nil
}

func (m *memBlockIO) Remove(ctx context.Context, filekey string) error {
	m.m.Delete(filekey)
	return nil
}

func New(maxSize int64) (blockio.IBlockIO, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}
	return &memBlockIO{maxSize: maxSize}, nil
}

func create(args interface{}) (blockio.IBlockIO, error) {
	c := &config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(c.MaxFileSize)
}

func init() {
	blockio.Register("mem", create)
}
