// Package acsf is a client for Site Factory, the multi-tenant Drupal hosting
// platform.
//
// The api/sitefactory package maps REST endpoints to methods and the tracker
// package follows the long-running tasks they start. This package combines
// both into the flows most automation needs:
//
//	client, err := acsf.New(acsf.Config{
//	    API: sitefactory.ClientConfig{
//	        SiteGroup:   "mygroup",
//	        Environment: "live",
//	        Username:    "deployer",
//	        APIKey:      apiKey,
//	    },
//	    PollInterval: 30 * time.Second,
//	})
//
//	// Back up every site and wait for the backups
//	backups, err := client.BackupAllSites(ctx, acsf.BackupAllOptions{
//	    Backup: sitefactory.BackupOptions{Components: []string{sitefactory.ComponentDatabase}},
//	    Wait:   true,
//	}, nil)
//
//	// Deploy a tag and wait for the update task
//	deploy, err := client.DeployCode(ctx, "tags/2.4.0", acsf.DeployOptions{StackID: 1}, nil)
//	if errors.Is(err, acsf.ErrUnknownRef) {
//	    // the tag has not been pushed
//	}
//	if deploy.Outcome.Failed() {
//	    log.Printf("deploy failed: %s", deploy.Outcome.Status.ErrorMessage)
//	}
package acsf
