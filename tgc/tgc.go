package tgc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type TGDavClient struct {
	c *config
}

type UploadResult struct {
	FileCount int64
	DirCount  int64
	TotalSize int64
}

func New(opts ...Option) (*TGDavClient, error) {
	c := &config{
		Thread:        4,
		RetryTimes:    3,
		RetryInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Client == nil {
		return nil, fmt.Errorf("no client found")
	}
	if c.Thread <= 0 {
		c.Thread = 1
	}
	if c.RetryTimes <= 0 {
		c.RetryTimes = 1
	}
	return &TGDavClient{c: c}, nil
}

func (c *TGDavClient) uploadFile(ctx context.Context, src string, dst string, size int64) error {
	start := time.Now()
	if err := retry.RetryDo(ctx, uint32(c.c.RetryTimes), c.c.RetryInterval, func(ctx context.Context) error {
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := c.c.Client.Upload(ctx, dst, f); err != nil {
			logutil.GetLogger(ctx).Error("upload file failed, wait retry", zap.Error(err), zap.String("dst", dst))
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	cost := time.Since(start)
	speed := "-"
	if ms := int64(cost / time.Millisecond); ms > 0 {
		speed = humanize.IBytes(uint64(float64(size)*1000/float64(ms))) + "/s"
	}
	logutil.GetLogger(ctx).Debug("file upload finish", zap.String("src", src), zap.String("dst", dst),
		zap.Duration("cost", cost), zap.String("speed", speed))
	return nil
}

// Upload copies a local file or directory tree to dst. A file uploaded to a
// dst ending with "/" keeps its local name.
func (c *TGDavClient) Upload(ctx context.Context, src string, dst string) (*UploadResult, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return c.uploadDir(ctx, src, dst)
	}
	if strings.HasSuffix(dst, "/") {
		dst = path.Join(dst, info.Name())
	}
	if err := c.uploadFile(ctx, src, dst, info.Size()); err != nil {
		return nil, err
	}
	return &UploadResult{FileCount: 1, TotalSize: info.Size()}, nil
}

func (c *TGDavClient) uploadDir(ctx context.Context, src string, dst string) (*UploadResult, error) {
	rs := &UploadResult{}
	var total atomic.Int64
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.c.Thread)
	walkErr := filepath.WalkDir(src, func(local string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := subctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, local)
		if err != nil {
			return err
		}
		remote := path.Join("/", dst, filepath.ToSlash(rel))
		if d.IsDir() {
			if err := c.c.Client.Mkdir(subctx, remote); err != nil {
				return err
			}
			rs.DirCount++
			return nil
		}
		if !d.Type().IsRegular() {
			logutil.GetLogger(ctx).Debug("skip non regular file", zap.String("path", local))
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rs.FileCount++
		eg.Go(func() error {
			if err := c.uploadFile(subctx, local, remote, info.Size()); err != nil {
				return err
			}
			total.Add(info.Size())
			return nil
		})
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("upload dir failed, src:%s, err:%w", src, err)
	}
	if walkErr != nil {
		return nil, fmt.Errorf("walk dir failed, src:%s, err:%w", src, walkErr)
	}
	rs.TotalSize = total.Load()
	return rs, nil
}
