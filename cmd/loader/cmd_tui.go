package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-loader/cmd/loader/ui"
	"github.com/mind-engage/mindengage-loader/internal/content"
)

var tuiCategory string

// tuiCmd runs the interactive form
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Fill a content form interactively",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiCategory, "category", "c", string(content.MCQ), "Category to start with")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cat, err := content.ParseCategory(tuiCategory)
	if err != nil {
		return err
	}
	env, err := environment()
	if err != nil {
		return err
	}
	scfg, err := sessionConfig()
	if err != nil {
		return err
	}
	m, err := ui.New(ui.Options{
		Category:  cat,
		Env:       env,
		Session:   scfg,
		Clipboard: newClipboard(),
		Opener:    newOpener(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
