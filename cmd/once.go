package cmd

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ngxmon/ngxmon/pkg/engine"
	"github.com/ngxmon/ngxmon/pkg/tui"
)

func onceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once [filename]",
		Short: "Run a single refresh cycle and print the snapshot",
		Args:  cobra.MaximumNArgs(1),
	}
	cfg := engine.DefaultConfig()
	cfg.InstallFlags(cmd.Flags())
	var configPath string
	var asJSON bool
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := engineConfig(cmd, args, cfg, configPath)
		if err != nil {
			return err
		}
		eng, err := engine.New(cfg)
		if err != nil {
			return err
		}
		eng.RefreshNow(cmd.Context())
		snap := eng.Latest()

		if asJSON {
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}
		return tui.Render(cmd.OutOrStdout(), snap, tui.RenderOptions{Interval: cfg.Interval})
	}
	return cmd
}
