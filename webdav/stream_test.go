package webdav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type trackedSource struct {
	r      io.Reader
	closed atomic.Int32
}

func (s *trackedSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *trackedSource) Close() error {
	s.closed.Add(1)
	return nil
}

func newTrackedSource(size int) (*trackedSource, []byte) {
	raw := make([]byte, size)
	for i := range raw {
		raw[i] = byte(i)
	}
	return &trackedSource{r: bytes.NewReader(raw)}, raw
}

type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func xorTransform(ctx context.Context, r io.Reader, w io.Writer) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for i := 0; i < n; i++ {
				buf[i] ^= 0x5a
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func TestPipelineWithoutTransform(t *testing.T) {
	src, _ := newTrackedSource(10)
	rc := NewPipeline(context.Background(), src)
	assert.Equal(t, src, rc)
}

func TestPipelineCopy(t *testing.T) {
	src, raw := newTrackedSource(1024*1024 + 17)
	rc := NewPipeline(context.Background(), src, xorTransform, CopyTransform, xorTransform)
	data, err := io.ReadAll(rc)
	assert.NoError(t, err)
	assert.Equal(t, raw, data)
	assert.NoError(t, rc.Close())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestPipelineStageFailure(t *testing.T) {
	src, _ := newTrackedSource(1024 * 1024)
	errStage := errors.New("stage failed")
	failing := func(ctx context.Context, r io.Reader, w io.Writer) error {
		buf := make([]byte, 1024)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
		return errStage
	}
	rc := NewPipeline(context.Background(), src, CopyTransform, failing, CopyTransform)
	_, err := io.ReadAll(rc)
	assert.ErrorIs(t, err, errStage)
	_ = rc.Close()
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestPipelineCloseBeforeRead(t *testing.T) {
	src, _ := newTrackedSource(4 * 1024 * 1024)
	rc := NewPipeline(context.Background(), src, CopyTransform)
	buf := make([]byte, 10)
	_, err := rc.Read(buf)
	assert.NoError(t, err)
	assert.NoError(t, rc.Close())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestPipelineContextCancel(t *testing.T) {
	src := &trackedSource{r: endlessReader{}}
	ctx, cancel := context.WithCancel(context.Background())
	rc := NewPipeline(ctx, src, CopyTransform)
	cancel()
	_, err := io.ReadAll(rc)
	assert.Error(t, err)
	_ = rc.Close()
	assert.Equal(t, int32(1), src.closed.Load())
}
