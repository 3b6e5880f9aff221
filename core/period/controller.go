// Package period closes grading periods automatically once their deadline is reached.
package period

import (
	"context"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata" // the deadline zone must resolve on hosts without a zoneinfo database

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

const (
	DefaultTimezone = "America/Mexico_City"
	DefaultInterval = 10 * time.Second
)

// NowFunc is mockable.
var NowFunc = time.Now

// Updater is the part of school.Service the controller needs.
type Updater interface {
	Current() school.SchoolData
	Dispatch(ctx context.Context, patches ...school.Patch) (school.SchoolData, error)
}

var _ Updater = (*school.Service)(nil)

// ClosedEvent describes the periods closed by one tick.
type ClosedEvent struct {
	School    string
	Periods   []school.Period
	Deadlines map[school.Period]string
	At        time.Time // wall clock in the controller's zone
}

// Controller checks the deadlines of the open periods on a fixed interval.
type Controller struct {
	svc      Updater
	loc      *time.Location
	interval time.Duration
	logger   core.Logger

	// OnClose, when set, is called after a tick closed at least one period.
	OnClose func(ctx context.Context, ev ClosedEvent)
}

func NewController(svc Updater, conf core.PeriodConfig, logger core.Logger) (*Controller, error) {
	tz := conf.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(err, "loading time zone %q", tz)
	}
	interval := conf.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{svc: svc, loc: loc, interval: interval, logger: logger}, nil
}

// Expired returns the open periods of `data` whose deadline is at or before `now`,
// `now` being a wall-clock reading (see school.WallClock). Malformed deadlines are
// returned separately and never expire.
func Expired(data school.SchoolData, now time.Time) (expired, malformed []school.Period) {
	for key, raw := range data.PeriodDeadlines {
		if raw == "" || !data.IsOpen(key) {
			continue
		}
		deadline, err := school.ParseDeadline(raw)
		if err != nil {
			malformed = append(malformed, key)
			continue
		}
		if !now.Before(deadline) {
			expired = append(expired, key)
		}
	}
	sortPeriods(expired)
	sortPeriods(malformed)
	return expired, malformed
}

// errNothingExpired aborts a dispatch whose periods were reopened or moved meanwhile.
var errNothingExpired = errors.New("no expired period")

// Tick runs one check: every expired period is closed with a single dispatch.
// Deadlines are checked again against the aggregate the dispatch applies to.
func (ctl *Controller) Tick(ctx context.Context) ([]school.Period, error) {
	now := school.WallClock(NowFunc(), ctl.loc)
	data := ctl.svc.Current()

	expired, malformed := Expired(data, now)
	for _, key := range malformed {
		ctl.logger.Warn(fmt.Sprintf("ignoring malformed deadline of period %s: %q", key, data.PeriodDeadlines[key]))
	}
	if len(expired) == 0 {
		return nil, nil
	}

	var closed []school.Period
	deadlines := make(map[school.Period]string)
	updated, err := ctl.svc.Dispatch(ctx, func(d school.SchoolData) (school.SchoolData, error) {
		closed, _ = Expired(d, now)
		if len(closed) == 0 {
			return d, errNothingExpired
		}
		for _, key := range closed {
			deadlines[key] = d.PeriodDeadlines[key]
		}
		return school.ClosePeriods(closed...)(d)
	})
	switch {
	case errors.Cause(err) == errNothingExpired:
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "closing expired periods")
	}
	ctl.logger.Info(fmt.Sprintf("closed periods %v at %s", closed, now.Format("2006-01-02 15:04:05")))

	if ctl.OnClose != nil {
		ctl.OnClose(ctx, ClosedEvent{School: updated.Name, Periods: closed, Deadlines: deadlines, At: now})
	}
	return closed, nil
}

// Run schedules Tick every interval until ctx is done.
func (ctl *Controller) Run(ctx context.Context) error {
	clog := cronLogger{ctl.logger}
	c := cron.New(
		cron.WithLocation(ctl.loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc("@every "+ctl.interval.String(), func() {
		if _, err := ctl.Tick(ctx); err != nil {
			ctl.logger.Error("period lifecycle tick", err)
		}
	}); err != nil {
		return errors.Wrap(err, "scheduling period lifecycle")
	}

	ctl.logger.Info(fmt.Sprintf("period lifecycle started: every %s in %s", ctl.interval, ctl.loc))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func sortPeriods(keys []school.Period) {
	order := make(map[school.Period]int, len(school.Periods))
	for i, p := range school.Periods {
		order[p] = i
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })
}

// cronLogger reports the scheduler's own messages through core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprint(append([]interface{}{"cron: ", msg, " "}, keysAndValues...)...))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprint(append([]interface{}{"cron: ", msg, " "}, keysAndValues...)...), err)
}
