// Package scheduler runs periodic jobs in-process.
//
// Each registered job gets its own loop; a job's next run is computed from
// its Schedule after the previous run finishes, so runs of the same job never
// overlap. Failures and panics are logged and the job keeps its schedule.
//
//	s := scheduler.New(scheduler.WithLogger(log))
//	_ = s.Add("trial-sweep", scheduler.DailyAt(2, 0), func(ctx context.Context) error {
//		_, err := trials.ProcessExpired(ctx)
//		return err
//	})
//	err := s.Run(ctx) // returns when ctx is cancelled
package scheduler
