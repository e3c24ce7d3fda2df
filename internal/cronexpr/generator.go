package cronexpr

import (
	"fmt"
	"hash/fnv"

	"tubemirror/internal/domain"
)

// Generator synthesizes load-balanced cron expressions. Minutes, hours and
// days are derived from a seed string so that subjects with the same schedule
// class spread their activations instead of stampeding at the same instant.
type Generator struct{}

// NewGenerator creates a new schedule generator.
func NewGenerator() *Generator {
	return &Generator{}
}

const (
	minutesPerHour = 60
	hoursPerDay    = 24
	daysPerWeek    = 7
	// daysPerMonth is capped at 28 so monthly schedules fire every month.
	daysPerMonth = 28
	// nightWindowStart and nightWindowHours bias daily and slower schedules
	// into low-traffic hours.
	nightWindowStart = 1
	nightWindowHours = 6
)

// seedValue hashes the seed into a stable spread value.
func seedValue(seed string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}

// Hourly returns an expression firing once per hour.
func (g *Generator) Hourly(seed string) string {
	v := seedValue(seed)
	return fmt.Sprintf("%d * * * *", v%minutesPerHour)
}

// Daily returns an expression firing once per day inside the night window.
func (g *Generator) Daily(seed string) string {
	v := seedValue(seed)
	minute := v % minutesPerHour
	hour := nightWindowStart + (v/minutesPerHour)%nightWindowHours
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// Weekly returns an expression firing once per week inside the night window.
func (g *Generator) Weekly(seed string) string {
	v := seedValue(seed)
	minute := v % minutesPerHour
	hour := nightWindowStart + (v/minutesPerHour)%nightWindowHours
	weekday := (v / (minutesPerHour * hoursPerDay)) % daysPerWeek
	return fmt.Sprintf("%d %d * * %d", minute, hour, weekday)
}

// Monthly returns an expression firing once per month inside the night window.
func (g *Generator) Monthly(seed string) string {
	v := seedValue(seed)
	minute := v % minutesPerHour
	hour := nightWindowStart + (v/minutesPerHour)%nightWindowHours
	day := 1 + (v/(minutesPerHour*hoursPerDay))%daysPerMonth
	return fmt.Sprintf("%d %d %d * *", minute, hour, day)
}

// ForMirrorCrontab returns the expression for a channel's mirror schedule
// class. Unknown classes fall back to daily.
func (g *Generator) ForMirrorCrontab(class domain.MirrorCrontab, seed string) string {
	switch class {
	case domain.MirrorHourly:
		return g.Hourly(seed)
	case domain.MirrorDaily:
		return g.Daily(seed)
	case domain.MirrorWeekly:
		return g.Weekly(seed)
	case domain.MirrorMonthly:
		return g.Monthly(seed)
	default:
		return g.Daily(seed)
	}
}
