package acsf

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lexfrei/go-acsf/api/sitefactory"
	"github.com/lexfrei/go-acsf/observability"
	"github.com/lexfrei/go-acsf/tracker"
)

const (
	// DefaultPollInterval is the pause between task status polls.
	DefaultPollInterval = 30 * time.Second
	// DefaultMaxAttempts bounds polling to two hours at the default interval.
	DefaultMaxAttempts = 240
	// DefaultConcurrency is the number of parallel status requests when waiting on many tasks.
	DefaultConcurrency = 4

	// TaskTypeBackup is the tracker.Task type of site backups.
	TaskTypeBackup = "Backup"
	// TaskTypeUpdate is the tracker.Task type of code updates.
	TaskTypeUpdate = "Update"
)

// ErrUnknownRef is returned by DeployCode when the ref is not deployable.
var ErrUnknownRef = errors.New("ref is not available")

// Client combines the Site Factory API client with a task tracker and
// implements multi-step flows on top of them.
type Client struct {
	api          sitefactory.SiteFactoryAPIClient
	tracker      *tracker.Tracker
	logger       observability.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// Config holds configuration for Client.
type Config struct {
	// API configures the underlying Site Factory client.
	API sitefactory.ClientConfig

	// PollInterval is the pause between status polls (defaults to 30s)
	PollInterval time.Duration

	// MaxAttempts bounds the number of polls per wait (defaults to 240)
	MaxAttempts int

	// Concurrency bounds parallel status requests when waiting on many tasks (defaults to 4)
	Concurrency int
}

// New creates a Client.
//
// Example:
//
//	client, err := acsf.New(acsf.Config{
//	    API: sitefactory.ClientConfig{
//	        SiteGroup:   "mygroup",
//	        Environment: "test",
//	        Username:    "deployer",
//	        APIKey:      apiKey,
//	    },
//	})
func New(cfg Config) (*Client, error) {
	apiConfig := cfg.API
	api, err := sitefactory.NewWithConfig(&apiConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Site Factory client")
	}

	return NewWithAPI(api, cfg)
}

// NewWithAPI creates a Client on top of an existing API implementation, such
// as a mock. Only the polling settings and cfg.API.Logger/Metrics are used.
func NewWithAPI(api sitefactory.SiteFactoryAPIClient, cfg Config) (*Client, error) {
	if api == nil {
		return nil, errors.New("API client is required")
	}

	// Set defaults
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	logger := observability.OrNoop(cfg.API.Logger)

	tr, err := tracker.New(api,
		tracker.WithLogger(logger),
		tracker.WithMetrics(cfg.API.Metrics),
		tracker.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tracker")
	}

	return &Client{
		api:          api,
		tracker:      tr,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
	}, nil
}

// API returns the underlying Site Factory client.
//
//nolint:ireturn // Exposes the interface so mocks can be used
func (c *Client) API() sitefactory.SiteFactoryAPIClient {
	return c.api
}

// Tracker returns the task tracker used by the flows.
func (c *Client) Tracker() *tracker.Tracker {
	return c.tracker
}

// WaitForTask polls a task by ID until it finishes, using the configured interval and budget.
func (c *Client) WaitForTask(ctx context.Context, taskID int64, progress tracker.ProgressFunc) (*tracker.Outcome, error) {
	//nolint:wrapcheck // tracker errors carry the task ID already
	return c.tracker.Wait(ctx, tracker.NewTask(taskID), c.maxAttempts, c.pollInterval, progress)
}

// BackupAllOptions configures BackupAllSites.
type BackupAllOptions struct {
	// Backup is applied to every site.
	Backup sitefactory.BackupOptions
	// Wait makes BackupAllSites wait until every backup finished.
	Wait bool
}

// BackupAllResult reports the backups started by BackupAllSites.
type BackupAllResult struct {
	// Tasks holds one backup task per site, labeled with the site name.
	Tasks []tracker.Task
	// Outcomes is keyed by task ID. It is nil unless BackupAllOptions.Wait is set.
	Outcomes map[int64]*tracker.Outcome
}

// Failed returns the tasks whose outcome is not a success, in task order.
func (r *BackupAllResult) Failed() []*tracker.Outcome {
	var failed []*tracker.Outcome
	for _, task := range r.Tasks {
		if outcome, ok := r.Outcomes[task.ID]; ok && !outcome.Succeeded() {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// BackupAllSites starts a backup of every site of the factory and optionally
// waits for all of them. If starting a backup fails, the tasks started so far
// are returned together with the error.
func (c *Client) BackupAllSites(ctx context.Context, opts BackupAllOptions, progress tracker.ProgressFunc) (*BackupAllResult, error) {
	sites, err := c.api.ListAllSites(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sites for backup")
	}

	result := &BackupAllResult{Tasks: make([]tracker.Task, 0, len(sites))}

	for _, site := range sites {
		backup := opts.Backup
		if backup.Label == "" {
			backup.Label = site.Site
		}

		started, err := c.api.BackupSite(ctx, site.ID, &backup)
		if err != nil {
			return result, errors.Wrapf(err, "failed to start backup of site %s", site.Site)
		}

		task := tracker.Task{ID: int64(started.TaskID), Type: TaskTypeBackup, Label: site.Site}
		result.Tasks = append(result.Tasks, task)

		c.logger.Info("backup started",
			observability.Field{Key: "site_id", Value: site.ID},
			observability.Field{Key: "site", Value: site.Site},
			observability.Field{Key: "task_id", Value: task.ID},
		)
	}

	if !opts.Wait {
		return result, nil
	}

	result.Outcomes, err = c.tracker.WaitAll(ctx, result.Tasks, c.maxAttempts, c.pollInterval, progress)
	if err != nil {
		return result, errors.Wrap(err, "failed waiting for backups")
	}

	return result, nil
}

// DeployOptions configures DeployCode.
type DeployOptions struct {
	// StackID selects the stack (defaults to the server's default stack)
	StackID int
	// SitesType is "code", "code, db" or "code, db, registry"
	SitesType string
	// ScopeSiteIDs limits the update to specific sites
	ScopeSiteIDs []int64
	// Refs are deployable refs fetched earlier. When set, DeployCode checks
	// against them instead of listing refs again.
	Refs *sitefactory.VCSRefs
}

// CheckRef returns an error matching ErrUnknownRef unless ref is one of refs.Available.
func CheckRef(refs *sitefactory.VCSRefs, ref string) error {
	if refs == nil || !slices.Contains(refs.Available, ref) {
		return errors.Wrapf(ErrUnknownRef, "%s", ref)
	}
	return nil
}

// DeployResult reports a code deployment.
type DeployResult struct {
	// Previous is the ref that was deployed before.
	Previous string
	Task     tracker.Task
	Outcome  *tracker.Outcome
}

// DeployCode checks that ref is deployable, starts the code update and waits for it.
// An unavailable ref yields an error matching ErrUnknownRef and no update is started.
func (c *Client) DeployCode(ctx context.Context, ref string, opts DeployOptions, progress tracker.ProgressFunc) (*DeployResult, error) {
	refs := opts.Refs
	if refs == nil {
		var err error
		refs, err = c.api.ListVCSRefs(ctx, &sitefactory.VCSParams{StackID: opts.StackID})
		if err != nil {
			return nil, errors.Wrap(err, "failed to list deployable refs")
		}
	}
	if err := CheckRef(refs, ref); err != nil {
		return nil, err
	}

	c.logger.Info("deploying code",
		observability.Field{Key: "ref", Value: ref},
		observability.Field{Key: "current", Value: refs.Current},
		observability.Field{Key: "stack_id", Value: opts.StackID},
	)

	started, err := c.api.UpdateCode(ctx, ref, &sitefactory.UpdateOptions{
		SitesType:    opts.SitesType,
		StackID:      opts.StackID,
		ScopeSiteIDs: opts.ScopeSiteIDs,
	})
	if err != nil {
		//nolint:wrapcheck // UpdateCode wraps with the ref
		return nil, err
	}

	result := &DeployResult{
		Previous: refs.Current,
		Task:     tracker.Task{ID: int64(started.TaskID), Type: TaskTypeUpdate, Label: ref},
	}

	result.Outcome, err = c.tracker.Wait(ctx, result.Task, c.maxAttempts, c.pollInterval, progress)
	if err != nil {
		return result, errors.Wrapf(err, "failed waiting for deployment of %s", ref)
	}

	return result, nil
}
