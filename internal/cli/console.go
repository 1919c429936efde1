package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/mmcdole/libraryhub/internal/library"
	"github.com/mmcdole/libraryhub/internal/tui"
)

func newConsoleCommand(opts *RootOptions) *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "libraryhub",
		Short: "LibraryHub admin console",
		Long: `Terminal console for managing a library's authors, books, users and loans.

Lists are cached locally and refreshed whenever a change on one page
affects another.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, page)
		},
	}

	cmd.Flags().StringVarP(&page, "page", "p", "", "start page (authors, books, users, borrow)")

	return cmd
}

func runConsole(opts *RootOptions, pageName string) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	logger := e.logger
	logger.Info("starting libraryhub", "version", Version, "server", e.cfg.Server.URL)

	if pageName == "" {
		pageName = e.cfg.UI.DefaultPage
	}
	start, ok := tui.ParsePage(pageName)
	if !ok {
		logger.Warn("unknown start page, using default", "page", pageName)
	}

	bus := event.NewBus(logger)
	svc := library.NewService(library.Repositories{
		Authors: e.client.Authors(),
		Books:   e.client.Books(),
		Users:   e.client.Users(),
		Loans:   e.client.Loans(),
	}, bus, logger)
	defer svc.Close()
	sess := library.NewSessionService(e.client, e.tokens, svc, logger)

	model := tui.NewModel(svc, sess, start, logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}
