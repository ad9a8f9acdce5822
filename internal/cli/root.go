package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/existflow/ironplan/internal/api"
	"github.com/existflow/ironplan/internal/config"
	"github.com/existflow/ironplan/internal/db"
	"github.com/existflow/ironplan/internal/logger"
	"github.com/existflow/ironplan/internal/tui"
)

var (
	logLevel   string
	logConsole bool
)

var rootCmd = &cobra.Command{
	Use:   "ironplan",
	Short: "ironplan - Terminal project management",
	Long: `ironplan is a terminal client for the ironplan project-management
server. Projects have a schedule, a status, and a team resolved from
member email addresses.

Run 'ironplan' without arguments to launch the interactive TUI.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}

		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
		}

		logConfig := logger.DefaultConfig()
		logConfig.Level = logger.ParseLevel(cfg.LogLevel)
		logConfig.FilePath = cfg.LogFile
		logConfig.Console = cfg.LogConsole

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("ironplan started", logger.F("command", cmd.Name()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := api.NewClient(cfg.ServerURL)
		if err != nil {
			return err
		}
		if !client.IsLoggedIn() {
			return fmt.Errorf("not logged in, run 'ironplan auth login' first")
		}

		// Drafts are a convenience; the TUI works without the local db
		drafts, err := db.OpenDefault()
		if err != nil {
			logger.Warn("Failed to open local database", logger.F("error", err))
			drafts = nil
		}
		if drafts != nil {
			defer drafts.Close()
		}

		logger.Info("Launching TUI")
		m := tui.NewModel(client, drafts, cfg.ConfirmDelete)
		p := tea.NewProgram(m, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			logger.Error("TUI error", logger.F("error", err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("ironplan exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newAPIClient builds a client from the saved configuration
func newAPIClient() (*api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.ServerURL)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(projectCmd)
}
