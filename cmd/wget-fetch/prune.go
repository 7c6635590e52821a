package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vertextoedge/wget-fetch/internal/adapter/filesystem"
	"github.com/vertextoedge/wget-fetch/internal/adapter/sqlite"
	"github.com/vertextoedge/wget-fetch/internal/service/maintenance"
)

var pruneEvery time.Duration

var errNoJournal = errors.New("no journal configured: set --journal or journal.path")

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop stale partial downloads",
	Long: `Remove resume journal records not updated within --older-than, together
with their .part files. With --sweep-dir, orphaned .part files under that
directory are removed too. With --every, keep pruning until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	flags := pruneCmd.Flags()
	flags.Duration("older-than", 24*time.Hour, "Age after which partial downloads are dropped")
	flags.String("sweep-dir", "", "Directory scanned for orphaned .part files")
	flags.DurationVar(&pruneEvery, "every", 0, "Prune periodically at this interval")

	mustBind("maintenance.part_max_age", flags.Lookup("older-than"))
	mustBind("maintenance.sweep_dir", flags.Lookup("sweep-dir"))
}

func runPrune(cmd *cobra.Command, args []string) error {
	if cfg.Journal.Path == "" {
		return errNoJournal
	}

	store, err := sqlite.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer store.Close()

	svc := maintenance.New(&maintenance.Config{
		PartMaxAge: cfg.Maintenance.GetPartMaxAge(),
		Interval:   pruneEvery,
		SweepDir:   cfg.Maintenance.SweepDir,
	}, store, filesystem.NewManager(), log)

	if pruneEvery > 0 {
		return svc.Start(cmd.Context())
	}

	n, err := svc.Prune(cmd.Context(), cfg.Maintenance.GetPartMaxAge())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d stale transfer(s)\n", n)
	return nil
}
