// Package sitefactory provides a Go client for the Site Factory REST API v1.
//
// A factory hosts many Drupal sites on shared stacks. Most mutating endpoints
// (backups, code updates) start a long-running task and return its ID; use
// GetTaskStatus or the tracker package to follow it to completion.
//
// # Factory URL
//
// Each site group and environment has its own factory:
//
//	https://www.<env>-<group>.acsitefactory.com   (dev, test, ...)
//	https://www.<group>.acsitefactory.com         (live)
//
// BaseURLFor builds it.
//
// # Authentication
//
// Requests use HTTP Basic auth with a factory username and its API key,
// found under "My account" in the factory UI.
//
// # Basic Usage
//
//	client, err := sitefactory.New(sitefactory.BaseURLFor("mygroup", "dev"), "deployer", apiKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	started, err := client.BackupSite(ctx, 1234, &sitefactory.BackupOptions{Label: "before-deploy"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status, err := client.GetTaskStatus(ctx, int64(started.TaskID))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(status.StatusString)
//
// # Advanced Configuration
//
//	client, err := sitefactory.NewWithConfig(&sitefactory.ClientConfig{
//	    SiteGroup:         "mygroup",
//	    Environment:       "test",
//	    Username:          "deployer",
//	    APIKey:            apiKey,
//	    MaxRetries:        5,
//	    RetryWaitTime:     2 * time.Second,
//	    ValidateResponses: true,
//	})
//
// # Error Handling
//
// Non-2xx responses are returned as *APIError. Use IsNotFound, IsUnauthorized
// and IsTransport to classify failures:
//
//	status, err := client.GetTaskStatus(ctx, taskID)
//	if sitefactory.IsNotFound(err) {
//	    // task does not exist
//	}
//
// # Retries and Rate Limiting
//
// GET requests are retried on 5xx and 429 with exponential backoff. POST
// requests are retried only on 429, so a backup or deploy is never started
// twice by the client itself. Reads and writes have separate per-minute budgets.
package sitefactory
