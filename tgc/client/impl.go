package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/studio-b12/gowebdav"
)

const (
	defaultTimeout = 10 * time.Minute
)

type defaultClient struct {
	c   *config
	dav *gowebdav.Client
}

func (d *defaultClient) Mkdir(ctx context.Context, dir string) error {
	if err := d.dav.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir failed, dir:%s, err:%w", dir, err)
	}
	return nil
}

func (d *defaultClient) Upload(ctx context.Context, dst string, r io.Reader) error {
	if err := d.dav.WriteStream(dst, r, 0644); err != nil {
		return fmt.Errorf("put file failed, dst:%s, err:%w", dst, err)
	}
	return nil
}

func (d *defaultClient) Stat(ctx context.Context, p string) (os.FileInfo, error) {
	return d.dav.Stat(p)
}

func New(opts ...Option) (IClient, error) {
	c := &config{
		Timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Endpoint) == 0 {
		return nil, fmt.Errorf("no endpoint found")
	}
	dav := gowebdav.NewClient(c.Endpoint, c.User, c.Password)
	dav.SetTimeout(c.Timeout)
	return &defaultClient{c: c, dav: dav}, nil
}
