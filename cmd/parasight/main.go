package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"parasight/internal/config"
	"parasight/internal/logging"
)

var (
	configDir string
	cfg       config.Config
	log       *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parasight",
	Short: "Link ingestion and PARA classification service",
	Long: "Turns shared URLs, pasted lists and X/Twitter posts into classified, " +
		"deduplicated bookmarks filed under Projects, Areas, Resources and Archive.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadConfig(configDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := logging.New(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		log = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./configs", "directory containing config.yaml")
	rootCmd.AddCommand(serveCmd, ingestCmd, dedupCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
