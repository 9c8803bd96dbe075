package cmd

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/tgdav/blockio"
	"github.com/xxxsen/tgdav/config"
	"github.com/xxxsen/tgdav/plugin"
	"github.com/xxxsen/tgdav/server"
	"go.uber.org/zap"
)

func logSummary(ctx context.Context, c *config.Config, a *app) {
	logger := logutil.GetLogger(ctx)
	logger.Info("current available blockio", zap.Strings("list", blockio.List()))
	logger.Info("current available plugin", zap.Strings("list", plugin.List()))
	logger.Info("current webdav config")
	logger.Info("-- bind", zap.String("addr", c.Bind), zap.String("prefix", c.Webdav.Prefix))
	logger.Info("-- backend", zap.String("name", c.Webdav.Backend), zap.Int("users", len(c.UserInfo)), zap.Bool("anonymous", c.AllowAnonymous))
	logger.Info("-- plugins", zap.Strings("enabled", a.plugins))
	if a.blob != nil {
		logger.Info("-- blob", zap.String("kind", a.blob.Name()), zap.String("max_file_size", humanize.IBytes(uint64(a.blob.MaxFileSize()))))
		logger.Info("-- read cache", zap.String("size", humanize.IBytes(uint64(c.Blob.ReadCacheSize))), zap.String("key_limit", humanize.IBytes(uint64(c.Blob.ReadCacheKeyLimit))))
	}
	if a.maxUploadSize > 0 {
		logger.Info("-- upload limit", zap.String("size", humanize.IBytes(uint64(a.maxUploadSize))))
	}
}

func NewServeCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webdav server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunServe(cmd.Context(), c)
		},
	}
}

func onRunServe(ctx context.Context, c *Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, c.Config)
	if err != nil {
		return err
	}
	logSummary(ctx, c.Config, a)
	svr, err := server.New(c.Config.Bind, a.handler,
		server.WithPrefix(c.Config.Webdav.Prefix),
		server.WithMaxUploadSize(a.maxUploadSize),
	)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("init server succ, start it...")
	return svr.Run()
}

func init() {
	register(NewServeCmd)
}
