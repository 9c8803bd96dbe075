package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/tgdav/cmd/tgc/config"
	"github.com/xxxsen/tgdav/tgc"
	"github.com/xxxsen/tgdav/tgc/client"
)

const (
	defaultConfigFileEnv = "TGC_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	TGC    *tgc.TGDavClient
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cfgs []string) error {
	var c *config.Config
	err := fmt.Errorf("no config file")
	for _, cfg := range cfgs {
		if len(cfg) == 0 {
			continue
		}
		c, err = config.Parse(cfg)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("no valid config file found, last err:%w", err)
	}
	ctx.Config = c
	logger.Init("", c.LogLevel, 0, 0, 0, true)
	cli, err := client.New(
		client.WithEndpoint(c.Endpoint),
		client.WithAuth(c.User, c.Password),
		client.WithTimeout(time.Duration(c.Timeout)*time.Second),
	)
	if err != nil {
		return err
	}
	ctx.TGC, err = tgc.New(tgc.WithClient(cli), tgc.WithThread(c.Thread))
	return err
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:          "tgc",
		Short:        "TGDav upload tool",
		SilenceUsage: true,
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, envConfigFile, "/etc/tgc/tgc_config.json"})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
