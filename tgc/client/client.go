package client

import (
	"context"
	"io"
	"os"
)

type IClient interface {
	Mkdir(ctx context.Context, dir string) error
	Upload(ctx context.Context, dst string, r io.Reader) error
	Stat(ctx context.Context, p string) (os.FileInfo, error)
}
