package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.assistant.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, src := range answer.Sources {
			cmd.Printf("  - %s\n", src)
		}
	}
	return nil
}
