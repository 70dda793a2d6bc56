package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/rustedworkshop/smokerig/internal/app/history"
	"github.com/rustedworkshop/smokerig/internal/model"
	"github.com/rustedworkshop/smokerig/internal/printer"
	"github.com/rustedworkshop/smokerig/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit        int
	statusFilter string
	format       string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List past verification runs.")
	c.Cmd.Flag("limit", "Maximum number of runs to show (0 shows all).").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("status", "Filter by status (running, completed, failed, error).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Parse status filter if provided.
	var statusFilter *model.RunStatus
	if c.statusFilter != "" {
		status := model.RunStatus(strings.ToLower(c.statusFilter))
		// Validate status value.
		switch status {
		case model.RunStatusRunning, model.RunStatusCompleted, model.RunStatusFailed, model.RunStatusError:
			statusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: running, completed, failed, error)", c.statusFilter)
		}
	}

	// Initialize the run journal (SQLite).
	journal, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create run journal: %w", err)
	}
	defer journal.Close()

	// Create history service.
	svc, err := history.NewService(history.ServiceConfig{
		Repository: journal,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute history.
	runs, err := svc.Run(ctx, history.Request{
		StatusFilter: statusFilter,
		Limit:        c.limit,
	})
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	// Print output.
	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}
