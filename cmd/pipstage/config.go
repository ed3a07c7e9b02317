// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pipstage-cli/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage pipstage configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := config.LoadWithPath(cmd.Context(), config.LoadOptions{
				ConfigFilePath: cfgFile,
			})
			if err != nil {
				return err
			}

			if path != "" {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("loaded from: ")+path)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), SubtitleStyle.Render("using built-in defaults"))
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.CreateDefaultConfig(); err != nil {
				return err
			}
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			path := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("config ready: ")+path)
			return nil
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the configuration directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfgDir)
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}
