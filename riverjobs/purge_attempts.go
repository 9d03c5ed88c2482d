package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"

	"github.com/roomhive/identitykit/core"
)

type PurgeExpiredAttemptsArgs struct {
	// GraceMinutes keeps expired attempts around a little longer so support
	// can inspect recent failures. Zero purges at expiry.
	GraceMinutes int `json:"grace_minutes,omitempty"`
}

func (PurgeExpiredAttemptsArgs) Kind() string { return "identitykit_purge_expired_attempts" }

func (args PurgeExpiredAttemptsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Hour,
			ByQueue:  true,
		},
	}
}

// PurgeExpiredAttemptsWorker deletes verification attempts past their expiry.
// Correctness does not depend on it: expiry and the rolling send window are
// enforced at read time. This keeps the attempts table from growing forever.
type PurgeExpiredAttemptsWorker struct {
	river.WorkerDefaults[PurgeExpiredAttemptsArgs]
	attempts core.AttemptStore
}

func NewPurgeExpiredAttemptsWorker(attempts core.AttemptStore) *PurgeExpiredAttemptsWorker {
	return &PurgeExpiredAttemptsWorker{attempts: attempts}
}

func (w *PurgeExpiredAttemptsWorker) Timeout(*river.Job[PurgeExpiredAttemptsArgs]) time.Duration {
	return 5 * time.Minute
}

func (w *PurgeExpiredAttemptsWorker) Work(ctx context.Context, job *river.Job[PurgeExpiredAttemptsArgs]) error {
	if w == nil || w.attempts == nil {
		return errors.New("identitykit purge: attempt store not configured")
	}
	cutoff := time.Now().Add(-time.Duration(job.Args.GraceMinutes) * time.Minute)
	// Attempts created inside the send window still count toward the rate
	// limit, so never purge newer than the window.
	if windowEdge := time.Now().Add(-time.Hour); cutoff.After(windowEdge) {
		cutoff = windowEdge
	}
	_, err := w.attempts.DeleteExpiredBefore(ctx, cutoff)
	return err
}
