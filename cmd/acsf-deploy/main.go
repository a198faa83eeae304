// Command acsf-deploy deploys a code ref to a Site Factory environment.
//
// Usage:
//
//	acsf-deploy [flags] <env> <ref> [stack_id]
//	acsf-deploy dev tags/2.7.0-beta.1-build
//	acsf-deploy -interval 10s test master-build 2
//
// Credentials and the site group come from ACSF_* environment variables or a
// .env file. Deploying to live backs up the database of every site first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf"
	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/internal/config"
	"github.com/lexfrei/go-acsf/observability"
	"github.com/lexfrei/go-acsf/tracker"
)

var (
	interval    = flag.Duration("interval", 0, "pause between status polls (default from ACSF_POLL_INTERVAL or 30s)")
	maxAttempts = flag.Int("max-attempts", 0, "maximum polls per task (default from ACSF_MAX_ATTEMPTS or 240)")
	concurrency = flag.Int("concurrency", 0, "parallel status requests while waiting for backups (default from ACSF_CONCURRENCY or 4)")
	envFile     = flag.String("env-file", "", "read settings from this file instead of ./.env")
	verbose     = flag.Bool("verbose", false, "log every HTTP request")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <env> <ref> [stack_id]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Example: %s dev tags/2.4.2-build\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 || flag.NArg() > 3 {
		fmt.Fprintln(os.Stderr, "Must supply a target environment and code reference.")
		fmt.Fprintln(os.Stderr)
		flag.Usage()
		os.Exit(2)
	}

	targetEnv := flag.Arg(0)
	ref := flag.Arg(1)
	stackID := 1
	if flag.NArg() == 3 {
		var err error
		stackID, err = strconv.Atoi(flag.Arg(2))
		if err != nil || stackID <= 0 {
			log.Fatalf("Invalid stack ID %q", flag.Arg(2))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, targetEnv, ref, stackID); err != nil {
		stop()
		log.Fatalf("Deploy failed: %v", err)
	}
}

func run(ctx context.Context, targetEnv, ref string, stackID int) error {
	start := time.Now()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	applyFlags(cfg)

	var logger observability.Logger
	if *verbose {
		logger = observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	client, err := acsf.New(acsf.Config{
		API: sitefactory.ClientConfig{
			Username:    cfg.Username,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			SiteGroup:   cfg.SiteGroup,
			Environment: targetEnv,
			Logger:      logger,
		},
		PollInterval: cfg.PollInterval,
		MaxAttempts:  cfg.MaxAttempts,
		Concurrency:  cfg.Concurrency,
	})
	if err != nil {
		return err
	}

	if err := deploy(ctx, client, targetEnv, ref, stackID); err != nil {
		return err
	}

	fmt.Printf("Script complete. Time elapsed: %s\n", formatElapsed(time.Since(start)))
	return nil
}

// deploy checks that ref is deployable, backs up every site when targeting
// live, then deploys ref and waits for it.
func deploy(ctx context.Context, client *acsf.Client, targetEnv, ref string, stackID int) error {
	refs, err := client.API().ListVCSRefs(ctx, &sitefactory.VCSParams{StackID: stackID})
	if err != nil {
		return err
	}
	if acsf.CheckRef(refs, ref) != nil {
		return errors.Newf("unable to find %s in list of available refs", ref)
	}
	fmt.Printf("Current code: %s\n", refs.Current)
	fmt.Printf("Deploying: %s\n", ref)

	if targetEnv == "live" {
		backups, err := client.BackupAllSites(ctx, acsf.BackupAllOptions{
			Backup: sitefactory.BackupOptions{Components: []string{sitefactory.ComponentDatabase}},
			Wait:   true,
		}, printProgress("Backup"))
		if err != nil {
			return err
		}
		if failed := backups.Failed(); len(failed) > 0 {
			for _, outcome := range failed {
				fmt.Printf("Backup of %s %s: %s\n", outcome.Task.Label, outcome.Result, outcome.Status.StatusString)
			}
			return errors.Newf("%d of %d backups did not complete", len(failed), len(backups.Tasks))
		}
		fmt.Println("Backups complete.")
	}

	result, err := client.DeployCode(ctx, ref, acsf.DeployOptions{StackID: stackID, Refs: refs}, printProgress("Code Deploy"))
	if err != nil {
		return err
	}

	switch {
	case result.Outcome.Succeeded():
		fmt.Println("Code deploy completed.")
	case result.Outcome.TimedOut():
		return errors.Newf("code deploy still %q after %d polls; task %d keeps running",
			result.Outcome.Status.StatusString, result.Outcome.Attempts, result.Task.ID)
	default:
		return errors.Newf("code deploy ended with %q: %s",
			result.Outcome.Status.StatusString, result.Outcome.Status.ErrorMessage)
	}

	return nil
}

func applyFlags(cfg *config.Config) {
	if *interval > 0 {
		cfg.PollInterval = *interval
	}
	if *maxAttempts > 0 {
		cfg.MaxAttempts = *maxAttempts
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}
}

func printProgress(label string) tracker.ProgressFunc {
	return func(task tracker.Task, status *sitefactory.TaskStatus) error {
		fmt.Printf("%s (%d): %s\n", label, task.ID, status.StatusString)
		return nil
	}
}

// formatElapsed renders d as HH:MM:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
