// Package cli wires configuration, credentials, and backend clients
// into the timeline TUI.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/crm-timeline/internal/app"
	"github.com/nhle/crm-timeline/internal/credential"
	"github.com/nhle/crm-timeline/internal/directory"
	"github.com/nhle/crm-timeline/internal/enrich"
	"github.com/nhle/crm-timeline/internal/logging"
	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/notes"
	"github.com/nhle/crm-timeline/internal/rest"
	"github.com/nhle/crm-timeline/internal/search"
	"github.com/nhle/crm-timeline/internal/source"
	"github.com/nhle/crm-timeline/internal/source/casefile"
	"github.com/nhle/crm-timeline/internal/source/deal"
	"github.com/nhle/crm-timeline/internal/source/email"
	"github.com/nhle/crm-timeline/internal/source/note"
	"github.com/nhle/crm-timeline/internal/store"
	"github.com/nhle/crm-timeline/internal/timeline"
)

var (
	configPath string
	pageSize   int
)

// validKinds maps the positional kind argument to a target kind.
var validKinds = map[string]model.TargetKind{
	"account": model.TargetAccount,
	"contact": model.TargetContact,
	"case":    model.TargetCase,
	"deal":    model.TargetDeal,
}

// NewRootCmd builds the root command: crm-timeline <kind> <id>.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crm-timeline <kind> <id>",
		Short: "Browse the unified activity timeline of a CRM entity",
		Long: "crm-timeline merges the notes, cases, deals, and emails of an " +
			"account, contact, case, or deal into one chronological, " +
			"month-grouped timeline.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := validKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown target kind %q (want account, contact, case, or deal)", args[0])
			}
			return run(cmd.Context(), kind, args[1])
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(
		&configPath, "config", model.DefaultConfigPath(), "config file path",
	)
	cmd.PersistentFlags().IntVar(
		&pageSize, "page-size", 0, "fetch window growth per load-more (overrides config)",
	)

	return cmd
}

// run assembles the aggregator and starts the TUI.
func run(ctx context.Context, kind model.TargetKind, id string) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"})
	log := logging.Component("cli")

	if cfg.API.BaseURL == "" {
		return fmt.Errorf("no API base URL configured; set api.base_url in %s", configPath)
	}

	token := resolveToken(cfg)
	if token == "" {
		return fmt.Errorf("no API token found; set CRM_TIMELINE_TOKEN or store one with the %q keyring key", credential.TokenKey)
	}

	rc := rest.NewClient(
		cfg.API.BaseURL, token, cfg.API.Tenant,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
	)
	searchClient := search.NewHTTPClient(rc)
	dir := directory.NewHTTPDirectory(rc)
	writer := notes.NewHTTPWriter(rc)

	target, err := dir.ResolveTarget(ctx, kind, id)
	if err != nil {
		return err
	}

	fetchers := []source.Fetcher{
		note.NewAdapter(searchClient),
		casefile.NewAdapter(searchClient),
		deal.NewAdapter(searchClient),
		email.NewAdapter(searchClient),
	}

	enricher := enrich.New(
		dir, dir, dir, dir, searchClient,
		cfg.Timeline.SubNoteLimit,
		logging.Component("enrich"),
	)

	size := cfg.Timeline.PageSize
	if pageSize > 0 {
		size = pageSize
	}

	agg := timeline.New(
		*target, fetchers, enricher, writer, size,
		logging.Component("timeline"),
	)

	snapshots, err := openSnapshotStore(cfg)
	if err != nil {
		// The timeline works without the local cache.
		log.Warn().Err(err).Msg("snapshot store unavailable; continuing without cache")
		snapshots = nil
	}
	if s, ok := snapshots.(*store.SQLiteStore); ok && s != nil {
		defer s.Close()
	}

	program := tea.NewProgram(app.New(agg, snapshots), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// resolveToken returns the API token from config, environment, or
// the system keyring, in that order.
func resolveToken(cfg *model.AppConfig) string {
	if cfg.API.Token != "" {
		return cfg.API.Token
	}
	if token := os.Getenv("CRM_TIMELINE_TOKEN"); token != "" {
		return token
	}
	token, err := credential.Get(credential.TokenKey)
	if err != nil {
		return ""
	}
	return token
}

// openSnapshotStore opens the local snapshot database, creating its
// parent directory when needed.
func openSnapshotStore(cfg *model.AppConfig) (store.Store, error) {
	dbPath := cfg.Database
	if dbPath == "" {
		dbPath = model.DefaultDatabasePath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	return store.NewSQLiteStore(dbPath)
}
