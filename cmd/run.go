package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ngxmon/ngxmon/pkg/config"
	"github.com/ngxmon/ngxmon/pkg/engine"
	"github.com/ngxmon/ngxmon/pkg/tui"
)

// engineConfig merges the config file into cfg. File values only fill in
// settings the user did not give on the command line; a positional filename
// argument beats both.
func engineConfig(cmd *cobra.Command, args []string, cfg engine.Config, configPath string) (engine.Config, error) {
	file, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if !flags.Changed("access-log") && file.AccessLog != "" {
		cfg.AccessLog = file.AccessLog
	}
	if !flags.Changed("error-log") && file.ErrorLog != "" {
		cfg.ErrorLog = file.ErrorLog
	}
	if !flags.Changed("window") && file.Window > 0 {
		cfg.Window = file.Window
	}
	if !flags.Changed("error-window") && file.ErrorWindow > 0 {
		cfg.ErrorWindow = file.ErrorWindow
	}
	if !flags.Changed("refresh") && file.RefreshSec > 0 {
		cfg.Interval = time.Duration(file.RefreshSec) * time.Second
	}
	if !flags.Changed("top") && file.TopN > 0 {
		cfg.TopN = file.TopN
	}
	if !flags.Changed("strip-query") && file.StripQuery {
		cfg.StripQuery = true
	}
	if !flags.Changed("outlog") && file.LogOutput != "" {
		cfg.LogOutput = file.LogOutput
	}
	if len(args) > 0 {
		cfg.AccessLog = args[0]
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [filename]",
		Short: "Run the live dashboard",
		Args:  cobra.MaximumNArgs(1),
	}
	cfg := engine.DefaultConfig()
	cfg.InstallFlags(cmd.Flags())
	var configPath string
	var noNetstat bool
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the config file")
	cmd.Flags().BoolVar(&noNetstat, "no-netstat", false, "Do not detect active connections")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := engineConfig(cmd, args, cfg, configPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Using access log:", cfg.AccessLog)
		eng, err := engine.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng.Start(ctx)
		defer eng.Shutdown()

		tui.New(eng, noNetstat).Run(ctx)
		return nil
	}
	return cmd
}
