package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"elevadorpro/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				if path, err = config.UserConfigPath(); err != nil {
					return err
				}
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.Write(cfg, path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().String("path", "", "destination file (default is the user config dir)")
	initCmd.Flags().Bool("force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)
	return cmd
}
