package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/roomhive/identitykit/core"
)

// RegisterPurgeExpiredAttemptsWorker registers the purge worker into a River
// workers registry.
func RegisterPurgeExpiredAttemptsWorker(ws *river.Workers, attempts core.AttemptStore) {
	river.AddWorker(ws, NewPurgeExpiredAttemptsWorker(attempts))
}

// AddPurgeExpiredAttemptsPeriodicJob schedules the purge on a cron spec, e.g.
// "30 * * * *" for half past every hour.
func AddPurgeExpiredAttemptsPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeExpiredAttemptsArgs, runOnStart bool) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
