// Package tracker follows long-running Site Factory tasks to completion.
//
// Endpoints such as site backups and code updates return a task ID right away
// and do the work in the background. A Tracker polls the task status at a
// fixed interval, reports every observation to an optional ProgressFunc and
// stops at the first terminal state or when the attempt budget runs out:
//
//	tr, _ := tracker.New(client)
//	outcome, err := tr.Wait(ctx, tracker.NewTask(taskID), 60, 30*time.Second,
//	    func(task tracker.Task, status *sitefactory.TaskStatus) error {
//	        log.Printf("%s: %s", task, status.StatusString)
//	        return nil
//	    })
//	if err != nil {
//	    // invalid arguments, a failed request or a canceled ctx
//	}
//	switch {
//	case outcome.Succeeded():
//	case outcome.Failed():    // task reported error or canceled
//	case outcome.TimedOut():  // still running after 60 polls
//	}
//
// WaitAll does the same for a batch, polling every pending task once per
// round. Failed requests are never retried here; the HTTP client owns retry
// policy.
package tracker
