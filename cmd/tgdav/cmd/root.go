package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/idgen"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/tgdav/config"
)

const (
	defaultConfigFileEnv = "TGDAV_CONFIG"
	defaultConfigFile    = "/etc/tgdav/config.json"
)

var cmds []CreateFunc

type Context struct {
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func loadConfig(cfgs []string) (*config.Config, error) {
	var lastErr error = fmt.Errorf("no config file given")
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		c, err := config.Parse(cfg)
		if err != nil {
			lastErr = fmt.Errorf("file:%s, err:%w", cfg, err)
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("no valid config file found, last err:%w", lastErr)
}

func initContext(ctx *Context, cfgs []string) error {
	c, err := loadConfig(cfgs)
	if err != nil {
		return err
	}
	ctx.Config = c
	logitem := c.LogInfo
	logger.Init(logitem.File, logitem.Level, int(logitem.FileCount), int(logitem.FileSize), int(logitem.KeepDays), logitem.Console)
	if err := idgen.Init(1); err != nil {
		return fmt.Errorf("init idgen failed, err:%w", err)
	}
	return nil
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:          "tgdav",
		Short:        "WebDAV server",
		SilenceUsage: true,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, envConfigFile, defaultConfigFile})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
