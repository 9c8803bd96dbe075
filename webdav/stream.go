package webdav

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	defaultPipeChunkCount = 8
	defaultPipeChunkSize  = 32 * 1024
)

// StreamTransform copies r into w applying some change to the bytes.
type StreamTransform func(ctx context.Context, r io.Reader, w io.Writer) error

var errPipeClosed = errors.New("pipe closed")

// chanPipe joins two stages with a bounded queue of chunks. Writers block
// while the queue is full, readers while it is empty.
type chanPipe struct {
	ch        chan []byte
	done      chan struct{}
	closeOnce sync.Once
	abortOnce sync.Once
	mu        sync.Mutex
	err       error
	pending   []byte
}

func newChanPipe(capacity int) *chanPipe {
	return &chanPipe{
		ch:   make(chan []byte, capacity),
		done: make(chan struct{}),
	}
}

func (p *chanPipe) Write(b []byte) (int, error) {
	total := 0
	for len(b) > 0 {
		n := len(b)
		if n > defaultPipeChunkSize {
			n = defaultPipeChunkSize
		}
		chunk := make([]byte, n)
		copy(chunk, b[:n])
		select {
		case p.ch <- chunk:
		case <-p.done:
			return total, p.closedErr()
		}
		total += n
		b = b[n:]
	}
	return total, nil
}

func (p *chanPipe) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case chunk, ok := <-p.ch:
			if !ok {
				return 0, p.readErr()
			}
			p.pending = chunk
		case <-p.done:
			return 0, p.closedErr()
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *chanPipe) readErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return io.EOF
}

func (p *chanPipe) closedErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return errPipeClosed
}

// CloseWrite ends the stream, a nil err lets the reader drain and see io.EOF.
func (p *chanPipe) CloseWrite(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	if err != nil {
		p.abort()
		return
	}
	p.closeOnce.Do(func() {
		close(p.ch)
	})
}

func (p *chanPipe) abort() {
	p.abortOnce.Do(func() {
		close(p.done)
	})
}

type pipeline struct {
	out     *chanPipe
	src     io.ReadCloser
	cancel  context.CancelFunc
	eg      *errgroup.Group
	pipes   []*chanPipe
	srcOnce sync.Once
	srcErr  error
	once    sync.Once
	err     error
}

func (p *pipeline) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *pipeline) closeSource() error {
	p.srcOnce.Do(func() {
		p.srcErr = p.src.Close()
	})
	return p.srcErr
}

func (p *pipeline) abort(err error) {
	for _, pp := range p.pipes {
		pp.CloseWrite(err)
	}
	_ = p.closeSource()
}

// Close tears down every stage and releases the source.
func (p *pipeline) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.abort(context.Canceled)
		err := p.eg.Wait()
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errPipeClosed) {
			err = p.closeSource()
		}
		p.err = err
	})
	return p.err
}

// NewPipeline chains transforms behind src. A failing stage, ctx
// cancellation or Close stops all stages and closes src.
func NewPipeline(ctx context.Context, src io.ReadCloser, transforms ...StreamTransform) io.ReadCloser {
	if len(transforms) == 0 {
		return src
	}
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	p := &pipeline{src: src, cancel: cancel, eg: eg}
	var in io.Reader = src
	for _, t := range transforms {
		stageIn := in
		out := newChanPipe(defaultPipeChunkCount)
		p.pipes = append(p.pipes, out)
		eg.Go(func() error {
			err := t(ctx, stageIn, out)
			out.CloseWrite(err)
			return err
		})
		in = out
	}
	p.out = p.pipes[len(p.pipes)-1]
	go func() {
		<-ctx.Done()
		p.abort(context.Cause(ctx))
	}()
	return p
}

// CopyTransform is the identity stage.
func CopyTransform(ctx context.Context, r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}
