package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type uploadArgs struct {
	file string
	dst  string
}

func NewUploadCmd(c *Context) *cobra.Command {
	args := &uploadArgs{}
	subc := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file or directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunUpload(cmd.Context(), c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.file, "file", "f", "", "local file or directory to upload")
	subc.PersistentFlags().StringVarP(&args.dst, "dst", "d", "/", "remote path, keep local name when ending with /")
	return subc
}

func onRunUpload(ctx context.Context, c *Context, args *uploadArgs) error {
	if len(args.file) == 0 {
		return fmt.Errorf("no upload file found")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	rs, err := c.TGC.Upload(ctx, args.file, args.dst)
	if err != nil {
		return fmt.Errorf("upload failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("upload succ",
		zap.String("dst", args.dst),
		zap.Int64("file_count", rs.FileCount),
		zap.Int64("dir_count", rs.DirCount),
		zap.String("total_size", humanize.IBytes(uint64(rs.TotalSize))),
		zap.Duration("cost", time.Since(start)),
	)
	return nil
}

func init() {
	register(NewUploadCmd)
}
