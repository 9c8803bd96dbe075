package blockio

import (
	"context"
	"io"
)

type rotateIO struct {
	impl      IBlockIO
	rotateVal int
}

// NewRotateIO stores every byte shifted by rotateVal and shifts it back on read.
func NewRotateIO(impl IBlockIO, rotateVal int) IBlockIO {
	if rotateVal%256 == 0 {
		return impl
	}
	return &rotateIO{impl: impl, rotateVal: rotateVal}
}

func (rt *rotateIO) Name() string {
	return rt.impl.Name()
}

func (rt *rotateIO) MaxFileSize() int64 {
	return rt.impl.MaxFileSize()
}

func (rt *rotateIO) Upload(ctx context.Context, r io.Reader) (string, int64, error) {
	return rt.impl.Upload(ctx, NewRotateReader(r, rt.rotateVal))
}

func (rt *rotateIO) Download(ctx context.Context, filekey string, pos int64) (io.ReadCloser, error) {
	rc, err := rt.impl.Download(ctx, filekey, pos)
	if err != nil {
		return nil, err
	}
	return rotateReadCloser{r: rc, c: rc, val: -1 * rt.rotateVal}, nil
}

func (rt *rotateIO) Remove(ctx context.Context, filekey string) error {
	return rt.impl.Remove(ctx, filekey)
}

type rotateReadCloser struct {
	r   io.Reader
	c   io.Closer
	val int
}

// NewRotateReader shifts every byte read from r by val, modulo 256.
func NewRotateReader(r io.Reader, val int) io.Reader {
	return rotateReadCloser{r: r, val: val}
}

func (r rotateReadCloser) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	for i := 0; i < n; i++ {
		p[i] = uint8((int(p[i]) + r.val) % 256)
	}
	return n, err
}

func (r rotateReadCloser) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}
