package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dream-ai/hammond/config"
	"github.com/dream-ai/hammond/internal/logging"
	"github.com/dream-ai/hammond/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Opens the chat screen. Logs go to ~/.hammond/hammond.log while it runs.`,
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	logPath := filepath.Join(filepath.Dir(config.DefaultPath()), "hammond.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	if err := logging.Init(cfg.Log.Level, cfg.Log.Format, logFile); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(ctx, a.assistant, "hammond: "+cfg.Paths.DocumentsDir)
}
