package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jbeckham/tracker-tui/internal/config"
)

func createInitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config directory with sample files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := configDir(v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if config.DirExists(dir) {
				fmt.Fprintf(out, "%s/ already exists\n", dir)
				return nil
			}
			if _, err := config.Init(dir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s/\n", dir)
			fmt.Fprintln(out, "  config.yaml   tracker host, views, columns")
			fmt.Fprintln(out, "  secrets.yaml  session cookie")
			return nil
		},
	}
}
