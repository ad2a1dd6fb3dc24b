// Command inboxsteward analyzes a Gmail mailbox and runs cleanup policies
// against it. Without -execute every invocation is a dry run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joshsymonds/inboxsteward/internal/cleanup"
	"github.com/joshsymonds/inboxsteward/internal/gmailctl"
	"github.com/joshsymonds/inboxsteward/internal/policy"
	"github.com/joshsymonds/inboxsteward/internal/policyfile"
	"github.com/joshsymonds/inboxsteward/internal/rate"
	"github.com/joshsymonds/inboxsteward/internal/run"
	"github.com/joshsymonds/inboxsteward/internal/runtime"
	"github.com/joshsymonds/inboxsteward/internal/store"
)

const exitInterrupted = 130

type config struct {
	userID      string
	cfgDir      string
	policyFile  string
	analyzeOnly bool
	execute     bool
	quick       bool
	importRules bool
	maxThreads  int
	oldDays     int
	rps         int
	jsonOut     string

	gmailctlCfg    string
	gmailctlBinary string
}

func main() {
	cfg := parseFlags()
	logger := runtime.DefaultLogger()

	code, err := runMain(cfg)
	if err != nil {
		logger.Error("inboxsteward failed", "error", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func parseFlags() config {
	userID := flag.String("user-id", "", "user identifier for policies and run history (required)")
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	policyFile := flag.String("policy-file", "", "load the cleanup policy from a YAML file")
	analyzeOnly := flag.Bool("analyze-only", false, "report mailbox health and the plan without running")
	execute := flag.Bool("execute", false, "apply actions instead of a dry run")
	quick := flag.Bool("quick", false, "one-off cleanup with the quick policy")
	importRules := flag.Bool("import-filters", false, "merge rules translated from gmailctl filters into the policy")
	maxThreads := flag.Int("max-threads", 500, "max threads to snapshot")
	oldDays := flag.Int("old-days", 30, "age threshold in days for the quick and default policies")
	rps := flag.Int("rps", 4, "max Gmail API requests per second")
	jsonOut := flag.String("json", "", "write the run record as JSON to path")
	gmailctlConfig := flag.String("gmailctl-config", "", "path to gmailctl config (optional)")
	gmailctlBin := flag.String("gmailctl-binary", "gmailctl", "gmailctl binary to invoke")
	flag.Parse()

	return config{
		userID:         *userID,
		cfgDir:         *cfgDir,
		policyFile:     *policyFile,
		analyzeOnly:    *analyzeOnly,
		execute:        *execute,
		quick:          *quick,
		importRules:    *importRules,
		maxThreads:     *maxThreads,
		oldDays:        *oldDays,
		rps:            *rps,
		jsonOut:        *jsonOut,
		gmailctlCfg:    *gmailctlConfig,
		gmailctlBinary: *gmailctlBin,
	}
}

func runMain(cfg config) (int, error) {
	if cfg.userID == "" {
		return 1, errors.New("-user-id is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// .env carries DATABASE_URL in deployments; absence is fine.
	_ = godotenv.Load()

	logger := runtime.DefaultLogger()

	var limiter rate.Limiter = rate.Unlimited{}
	if cfg.rps > 0 {
		bucket := rate.NewTokenBucket(cfg.rps)
		defer bucket.Stop()
		limiter = bucket
	}

	scope := runtime.ScopeModify
	if cfg.analyzeOnly {
		scope = runtime.ScopeReadonly
	}
	client, err := runtime.NewGmailClient(ctx, cfg.cfgDir, scope, limiter)
	if err != nil {
		return 1, fmt.Errorf("create gmail client: %w", err)
	}

	repo, closeRepo, err := openRepository(ctx, logger)
	if err != nil {
		return 1, err
	}
	defer closeRepo()

	svc := cleanup.NewService(client, limiter, repo, logger)
	now := time.Now()

	pol, err := resolvePolicy(ctx, cfg, repo, now)
	if err != nil {
		return 1, err
	}

	if cfg.importRules {
		if err := mergeGmailctlRules(ctx, cfg, pol, now); err != nil {
			return 1, err
		}
	}

	if cfg.analyzeOnly {
		analysis, err := svc.Analyze(ctx, cfg.userID, pol, cfg.maxThreads)
		if err != nil {
			return 1, fmt.Errorf("analyze mailbox: %w", err)
		}
		if err := cleanup.PrintAnalysisHuman(analysis, os.Stdout); err != nil {
			return 1, err
		}
		if cfg.jsonOut != "" {
			if err := cleanup.WriteJSON(analysis, cfg.jsonOut); err != nil {
				return 1, err
			}
		}
		return 0, nil
	}

	r, err := svc.Execute(ctx, cfg.userID, pol, cleanup.Options{
		DryRun:     !cfg.execute,
		MaxThreads: cfg.maxThreads,
	})
	if err != nil {
		return 1, fmt.Errorf("run cleanup: %w", err)
	}
	if err := cleanup.PrintRunHuman(r, os.Stdout); err != nil {
		return 1, err
	}
	if cfg.jsonOut != "" {
		if err := cleanup.WriteJSON(r, cfg.jsonOut); err != nil {
			return 1, err
		}
	}
	if r.Status == run.StatusCancelled {
		return exitInterrupted, nil
	}
	return 0, nil
}

// openRepository connects to Postgres when DATABASE_URL is set and falls
// back to emitting runs without persistence otherwise.
func openRepository(ctx context.Context, logger *slog.Logger) (store.Repository, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Warn("DATABASE_URL not set; runs will not be persisted")
		return nil, func() {}, nil
	}
	pg, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

// resolvePolicy picks the policy for this invocation: an explicit file, the
// quick policy, the user's stored policy, or the default.
func resolvePolicy(ctx context.Context, cfg config, repo store.Repository, now time.Time) (*policy.Policy, error) {
	if cfg.policyFile != "" {
		pol, err := policyfile.Load(cfg.policyFile, now)
		if err != nil {
			return nil, err
		}
		if pol.UserID == "" {
			pol.UserID = cfg.userID
		}
		return pol, nil
	}
	if cfg.quick {
		return policy.Quick(cfg.userID, cfg.oldDays, true, true, now), nil
	}
	if repo != nil {
		policies, err := repo.ListPolicies(ctx, cfg.userID)
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		for _, p := range policies {
			if p.Enabled {
				return p, nil
			}
		}
	}
	pol := policy.Default(cfg.userID, now)
	pol.OldThresholdDays = cfg.oldDays
	if repo != nil {
		if err := repo.SavePolicy(ctx, pol); err != nil {
			return nil, fmt.Errorf("save default policy: %w", err)
		}
	}
	return pol, nil
}

func mergeGmailctlRules(ctx context.Context, cfg config, pol *policy.Policy, now time.Time) error {
	cfgPath := cfg.gmailctlCfg
	if cfgPath == "" {
		cfgPath = cfg.cfgDir
	}
	export, err := gmailctl.Runner{Binary: cfg.gmailctlBinary, ConfigDir: cfgPath}.ExportFilters(ctx)
	if err != nil {
		return fmt.Errorf("export gmailctl filters: %w", err)
	}
	tr := gmailctl.Translate(export, now)
	pol.CleanupRules = append(pol.CleanupRules, tr.CleanupRules...)
	pol.LabelingRules = append(pol.LabelingRules, tr.LabelingRules...)
	for _, sk := range tr.Skipped {
		fmt.Fprintf(os.Stderr, "skipped filter %q: %s\n", sk.Name, sk.Reason)
	}
	return nil
}
