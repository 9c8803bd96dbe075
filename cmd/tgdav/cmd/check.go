package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
)

func NewCheckCmd(c *Context) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and build every component without serving",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx, c.Config)
			if err != nil {
				return err
			}
			logSummary(ctx, c.Config, a)
			logutil.GetLogger(ctx).Info("config check succ")
			return nil
		},
	}
}

func init() {
	register(NewCheckCmd)
}
