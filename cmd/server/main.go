package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"titanhub/internal/config"
)

func main() {
	config.LoadDotEnv()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "titanhub",
		Short:         "TitanHub community platform server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", os.Getenv("TITANHUB_CONFIG"), "optional YAML config file")
	config.RegisterFlags(root.PersistentFlags())

	load := func(cmd *cobra.Command) (*config.Config, error) {
		return config.Load(cmd.Flags(), configFile)
	}

	serve := newServeCmd(load)
	root.AddCommand(serve, newMigrateCmd(load), newReconcileCmd(load))
	// 不带子命令时直接启动服务
	root.RunE = serve.RunE
	return root
}
