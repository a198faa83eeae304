package sitefactory

import "context"

// SiteFactoryAPIClient defines the interface for Site Factory REST API operations.
// This interface enables consumers to create mock implementations for testing.
//
// It covers:
//   - Task status, listing, logs and control
//   - Sites and site backups
//   - Site collections
//   - Code deployment (VCS refs and updates)
//
// Example usage with testify/mock:
//
//	type MockClient struct {
//	    mock.Mock
//	}
//
//	func (m *MockClient) GetTaskStatus(ctx context.Context, taskID int64) (*TaskStatus, error) {
//	    args := m.Called(ctx, taskID)
//	    return args.Get(0).(*TaskStatus), args.Error(1)
//	}
//
//nolint:revive // SiteFactoryAPIClient is intentionally explicit to avoid confusion with Client struct
type SiteFactoryAPIClient interface { //nolint:interfacebloat // This interface mirrors the full API client
	// Ping checks connectivity and credentials.
	Ping(ctx context.Context) (*PingResponse, error)

	// Tasks operations

	// GetTaskStatus fetches the current status of a task.
	GetTaskStatus(ctx context.Context, taskID int64) (*TaskStatus, error)

	// ListTasks lists tasks known to the factory.
	ListTasks(ctx context.Context, params *ListTasksParams) ([]Task, error)

	// GetTaskLogs returns the log of a task.
	GetTaskLogs(ctx context.Context, taskID int64) ([]TaskLogEntry, error)

	// PauseTask pauses or resumes a task.
	PauseTask(ctx context.Context, taskID int64, paused bool) (*MessageResponse, error)

	// TerminateTask asks the factory to stop a task.
	TerminateTask(ctx context.Context, taskID int64) (*MessageResponse, error)

	// Sites operations

	// ListSites retrieves one page of sites.
	ListSites(ctx context.Context, params *ListParams) (*SitesResponse, error)

	// ListAllSites retrieves every site, following pages.
	ListAllSites(ctx context.Context) ([]Site, error)

	// GetSite retrieves the details of a site.
	GetSite(ctx context.Context, siteID int64) (*SiteDetails, error)

	// BackupSite starts a site backup.
	BackupSite(ctx context.Context, siteID int64, opts *BackupOptions) (*TaskStarted, error)

	// ListSiteBackups lists stored backups of a site.
	ListSiteBackups(ctx context.Context, siteID int64, params *ListParams) (*BackupsResponse, error)

	// Collections operations

	// GetCollection retrieves a site collection.
	GetCollection(ctx context.Context, collectionID int64) (*Collection, error)

	// DeleteCollection deletes a site collection.
	DeleteCollection(ctx context.Context, collectionID int64) (*CollectionDeleted, error)

	// AddSitesToCollection adds sites to a collection.
	AddSitesToCollection(ctx context.Context, collectionID int64, siteIDs []int64) (*CollectionChange, error)

	// RemoveSitesFromCollection removes sites from a collection.
	RemoveSitesFromCollection(ctx context.Context, collectionID int64, siteIDs []int64) (*CollectionChange, error)

	// SetCollectionPrimarySite changes the primary site of a collection.
	SetCollectionPrimarySite(ctx context.Context, collectionID, siteID int64) (*CollectionChange, error)

	// Deployment operations

	// ListVCSRefs lists deployable refs.
	ListVCSRefs(ctx context.Context, params *VCSParams) (*VCSRefs, error)

	// UpdateCode starts a code deployment.
	UpdateCode(ctx context.Context, ref string, opts *UpdateOptions) (*TaskStarted, error)
}
