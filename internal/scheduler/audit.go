package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
	"tubemirror/internal/queue"
)

// AuditWindow shapes one gap-recovery audit. Zero values mean "derive it":
// the start comes from the last successful trigger run, the end is the
// current instant, the step is one minute.
type AuditWindow struct {
	Start *time.Time
	End   *time.Time
	Step  time.Duration
	// Force runs the audit even when the window would normally be skipped as
	// too recent or too old.
	Force bool
}

// AuditMissed replays trigger ticks across a window the live trigger missed,
// dispatching anything that should have fired during it. The second return
// reports whether the audit actually ran; a skipped audit is not an error.
//
// Without Force the audit is skipped when there is no recorded trigger run,
// when the gap is shorter than the configured check interval, and when it is
// older than the maximum audit age. The last guard exists because replaying a
// week-old window would dispatch a scan for nearly every subject at once.
func (e *Engine) AuditMissed(ctx context.Context, window AuditWindow) (domain.Dispatched, bool, error) {
	var dispatched domain.Dispatched

	end := time.Now()
	if window.End != nil {
		end = *window.End
	}
	end = end.Truncate(time.Second)

	var start time.Time
	switch {
	case window.Start != nil:
		start = *window.Start
	default:
		last, err := e.results.LatestSuccess(ctx, queue.TaskTriggerCrontabScans)
		if errors.Is(err, database.ErrNotFound) {
			e.log.Debug("gap audit skipped: no recorded trigger run")
			return dispatched, false, nil
		}
		if err != nil {
			return dispatched, false, fmt.Errorf("failed to find last trigger run: %w", err)
		}
		if last.DateDone == nil {
			e.log.Debug("gap audit skipped: last trigger run has no completion time")
			return dispatched, false, nil
		}
		start = *last.DateDone

		if !window.Force {
			gap := end.Sub(start)
			if gap < e.cfg.CrontabCheckInterval {
				e.log.Debug("gap audit skipped: last run too recent", "gap", gap)
				return dispatched, false, nil
			}
			if gap > e.cfg.MaxAuditAge() {
				e.log.Warn("gap audit skipped: last run too old, refusing to replay",
					"gap", gap,
					"max_age", e.cfg.MaxAuditAge(),
				)
				return dispatched, false, nil
			}
		}
	}
	start = start.Truncate(time.Second)

	step := window.Step
	if step <= 0 {
		step = time.Minute
	}
	if !start.Before(end) {
		return dispatched, false, nil
	}

	e.log.Info("replaying missed trigger ticks",
		"start", start,
		"end", end,
		"step", step,
	)

	for tick := start; !tick.After(end); tick = tick.Add(step) {
		var err error
		dispatched, err = e.dispatchTick(ctx, tick, dispatched)
		if err != nil {
			return dispatched, true, fmt.Errorf("failed to replay tick %s: %w", tick.Format(time.RFC3339), err)
		}
	}

	return dispatched, true, nil
}
