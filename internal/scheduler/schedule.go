package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MinInterval is the shortest schedule accepted.
const MinInterval = time.Minute

// Schedule yields the fire times of a job.
type Schedule interface {
	// Next returns the first fire time strictly after t.
	Next(t time.Time) time.Time
}

// Every fires at a fixed interval from the previous fire time.
type Every time.Duration

func (e Every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

var namedSchedules = map[string]Every{
	"@hourly": Every(time.Hour),
	"@daily":  Every(24 * time.Hour),
	"@weekly": Every(7 * 24 * time.Hour),
}

// ParseSchedule parses a job schedule. Accepted forms are "every <duration>",
// a bare Go duration, @hourly, @daily, @weekly, a standard five-field cron
// expression such as "0 9 * * 1-5" and the other cron descriptors.
func ParseSchedule(spec string) (Schedule, error) {
	raw := strings.TrimSpace(spec)
	s := strings.ToLower(raw)
	if s == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	if e, ok := namedSchedules[s]; ok {
		return e, nil
	}
	if strings.HasPrefix(s, "@") || len(strings.Fields(s)) == 5 {
		return parseCron(raw)
	}

	s = strings.TrimSpace(strings.TrimPrefix(s, "every"))
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: use \"every 24h\", @daily or a cron expression", spec)
	}
	if d < MinInterval {
		return nil, fmt.Errorf("schedule %q is shorter than %s", spec, MinInterval)
	}
	return Every(d), nil
}

func parseCron(expr string) (Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	if every, ok := sched.(cron.ConstantDelaySchedule); ok && every.Delay < MinInterval {
		return nil, fmt.Errorf("schedule %q is shorter than %s", expr, MinInterval)
	}
	// ParseStandard accepts expressions that can never match, like Feb 30.
	if sched.Next(time.Now()).IsZero() {
		return nil, fmt.Errorf("cron schedule %q never fires", expr)
	}
	return sched, nil
}

// advance returns the first fire time strictly after now, counted from next
// so that late runs never shift the grid. A next already after now is
// returned as is.
func advance(next time.Time, sched Schedule, now time.Time) time.Time {
	if next.After(now) {
		return next
	}
	if e, ok := sched.(Every); ok {
		interval := time.Duration(e)
		steps := now.Sub(next)/interval + 1
		return next.Add(steps * interval)
	}
	// Cron fire times are absolute, so the first one after now is on the
	// same grid as next.
	return sched.Next(now)
}
