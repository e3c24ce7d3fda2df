// Package cronexpr provides cron expression evaluation and load-balanced
// schedule generation for scan and sync crontabs.
package cronexpr

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidExpression is returned when a crontab cannot be parsed.
var ErrInvalidExpression = errors.New("invalid cron expression")

// Evaluator evaluates standard 5-field cron expressions against instants.
// It is pure: callers supply the instant, it never reads the wall clock.
type Evaluator struct {
	parser cron.Parser
}

// NewEvaluator creates an evaluator for the standard 5-field format
// (minute hour day month weekday).
func NewEvaluator() *Evaluator {
	return &Evaluator{
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

// Matches reports whether the expression fires at the given instant. Cron
// activations have minute granularity, so the instant is truncated before
// evaluation.
func (e *Evaluator) Matches(expr string, at time.Time) (bool, error) {
	schedule, err := e.parser.Parse(expr)
	if err != nil {
		return false, fmt.Errorf("%w: %q: %s", ErrInvalidExpression, expr, err.Error())
	}

	minute := at.Truncate(time.Minute)
	next := schedule.Next(minute.Add(-time.Second))
	return next.Equal(minute), nil
}

// Interval returns the duration between two consecutive activations of the
// expression after the given instant.
func (e *Evaluator) Interval(expr string, after time.Time) (time.Duration, error) {
	schedule, err := e.parser.Parse(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %s", ErrInvalidExpression, expr, err.Error())
	}

	first := schedule.Next(after)
	second := schedule.Next(first)
	return second.Sub(first), nil
}

// Next returns the next activation of the expression strictly after the
// given instant.
func (e *Evaluator) Next(expr string, after time.Time) (time.Time, error) {
	schedule, err := e.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %s", ErrInvalidExpression, expr, err.Error())
	}
	return schedule.Next(after), nil
}

// Validate reports whether the expression parses.
func (e *Evaluator) Validate(expr string) error {
	if _, err := e.parser.Parse(expr); err != nil {
		return fmt.Errorf("%w: %q: %s", ErrInvalidExpression, expr, err.Error())
	}
	return nil
}
