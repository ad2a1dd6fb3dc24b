// Command inboxsteward-history inspects the persisted cleanup audit trail:
// recent runs, a single run's action records, or an aggregate report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshsymonds/inboxsteward/internal/cleanup"
	"github.com/joshsymonds/inboxsteward/internal/run"
	"github.com/joshsymonds/inboxsteward/internal/runtime"
	"github.com/joshsymonds/inboxsteward/internal/store"
)

const hoursPerDay = 24

type config struct {
	userID     string
	limit      int
	showRun    string
	reportDays int
	jsonOut    string
}

func main() {
	cfg := parseFlags()
	if err := runMain(cfg); err != nil {
		runtime.DefaultLogger().Error("inboxsteward-history failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	userID := flag.String("user-id", "", "user identifier (required)")
	limit := flag.Int("limit", 20, "number of runs to list")
	showRun := flag.String("show", "", "show one run's action records by run id")
	reportDays := flag.Int("report-days", 0, "aggregate runs over the past N days instead of listing")
	jsonOut := flag.String("json", "", "write output as JSON to path")
	flag.Parse()

	return config{
		userID:     *userID,
		limit:      *limit,
		showRun:    *showRun,
		reportDays: *reportDays,
		jsonOut:    *jsonOut,
	}
}

func runMain(cfg config) error {
	if cfg.userID == "" && cfg.showRun == "" {
		return errors.New("-user-id is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}
	repo, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	switch {
	case cfg.showRun != "":
		return showRun(ctx, repo, cfg)
	case cfg.reportDays > 0:
		return showReport(ctx, repo, cfg)
	default:
		return listRuns(ctx, repo, cfg)
	}
}

func showRun(ctx context.Context, repo store.Repository, cfg config) error {
	r, err := repo.GetRun(ctx, cfg.showRun)
	if err != nil {
		return fmt.Errorf("get run %s: %w", cfg.showRun, err)
	}
	if err := cleanup.PrintRunHuman(r, os.Stdout); err != nil {
		return err
	}
	if cfg.jsonOut != "" {
		return cleanup.WriteJSON(r, cfg.jsonOut)
	}
	return nil
}

func listRuns(ctx context.Context, repo store.Repository, cfg config) error {
	runs, err := repo.ListRuns(ctx, cfg.userID, cfg.limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	summaries := make([]run.Summary, 0, len(runs))
	for _, r := range runs {
		sum := r.Summarize()
		summaries = append(summaries, sum)
		fmt.Printf("%-40s %-10s %4d actions (%d failed)  %s\n",
			sum.RunID, sum.Status, sum.ActionsTotal, sum.ActionsFailed, sum.StartedAt)
	}
	if cfg.jsonOut != "" {
		return cleanup.WriteJSON(summaries, cfg.jsonOut)
	}
	return nil
}

func showReport(ctx context.Context, repo store.Repository, cfg config) error {
	runs, err := repo.ListRuns(ctx, cfg.userID, 0)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	end := time.Now()
	start := end.Add(-time.Duration(cfg.reportDays) * hoursPerDay * time.Hour)
	rep := run.BuildReport(cfg.userID, runs, start, end)

	fmt.Printf("inboxsteward report for %s, last %d days\n", cfg.userID, cfg.reportDays)
	fmt.Printf("  runs:    %d total, %d completed, %d failed, %d dry runs\n",
		rep.TotalRuns, rep.CompletedRuns, rep.FailedRuns, rep.DryRuns)
	fmt.Printf("  emails:  %d deleted, %d archived, %d labeled\n",
		rep.EmailsDeleted, rep.EmailsArchived, rep.EmailsLabeled)
	if rep.StorageFreedMB > 0 {
		fmt.Printf("  storage: %.2f MB freed\n", rep.StorageFreedMB)
	}
	if rep.AvgDurationSeconds > 0 {
		fmt.Printf("  avg run: %.1fs\n", rep.AvgDurationSeconds)
	}
	for _, ac := range rep.TopActions {
		fmt.Printf("  %-12s %d\n", ac.Action, ac.Count)
	}

	if cfg.jsonOut != "" {
		return cleanup.WriteJSON(rep, cfg.jsonOut)
	}
	return nil
}
