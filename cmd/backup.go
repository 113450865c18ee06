package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBackupCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the preference file into the backup directory once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg)
			if err != nil {
				return err
			}

			task, err := newBackupTask(cfg, logger, nil)
			if err != nil {
				return err
			}

			if list, _ := cmd.Flags().GetBool("list"); list {
				names, err := task.List()
				if err != nil {
					return err
				}
				for _, name := range names {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			path, err := task.RunBackup()
			if err != nil {
				return err
			}
			if path == "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "nothing to back up: %s does not exist\n", cfg.Storage.DataFile)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().Bool("list", false, "List existing backups instead of creating one.")
	return cmd
}
