package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dream-ai/hammond/config"
	"github.com/dream-ai/hammond/internal/logging"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hammond",
	Short: "Ask questions about your documents",
	Long: `hammond indexes a directory of documents once and answers questions
about them in a multi-turn conversation, using only the retrieved passages.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		return logging.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.hammond/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
