// Package scheduler triggers the periodic jobs of the traffic service:
// resetting all camera counters on cron expressions and reporting the
// online state of native cameras.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Expressions may carry an optional leading seconds field and use '?' for
// day of month or day of week.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSpec validates a cron expression.
func ParseSpec(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cron expression '%s'", spec)
	}
	return s, nil
}

type Job func(ctx context.Context)

type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.PrintfLogger(log.StandardLogger())

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddCron runs job on every activation of spec.
func (s *Scheduler) AddCron(name, spec string, job Job) error {
	schedule, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	s.cron.Schedule(schedule, s.wrap(name, job))
	log.Infof("scheduler added '%s' on '%s'", name, spec)
	return nil
}

// AddEvery runs job at a fixed interval, rounded up to whole seconds.
func (s *Scheduler) AddEvery(name string, every time.Duration, job Job) {
	s.cron.Schedule(cron.Every(every), s.wrap(name, job))
	log.Infof("scheduler added '%s' every %s", name, every)
}

func (s *Scheduler) wrap(name string, job Job) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		log.Debugf("scheduler running '%s'", name)
		job(s.ctx)
		log.Debugf("scheduler finished '%s' in %s", name, time.Since(start))
	})
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits until they returned.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
	})
}
