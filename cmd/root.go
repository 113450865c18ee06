package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ipril-bot/internal/config"
	"ipril-bot/internal/logutil"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "ipril",
		Short:         "Telegram grammar assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional).")
	cmd.PersistentFlags().String("env-file", ".env", "Dotenv file with credentials (optional).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "", "Logging format: text|json.")
	cmd.PersistentFlags().String("data-file", "", "Preference file path.")

	_ = v.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("storage.data_file", cmd.PersistentFlags().Lookup("data-file"))

	cmd.AddCommand(newServeCmd(v))
	cmd.AddCommand(newBackupCmd(v))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig layers defaults, the config file, .env, the environment and flags.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	config.SetDefaults(v)

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, err
	}
	config.BindEnv(v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if err := config.ReadFile(v, cfgFile); err != nil {
		return config.Config{}, err
	}

	return config.FromViper(v)
}

func setupLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logutil.NewLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
