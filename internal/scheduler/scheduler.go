package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is what the scheduler triggers.
type Job interface {
	RunAll(ctx context.Context) (Report, error)
}

// Scheduler fires the rollover on a cron spec evaluated in a fixed zone.
type Scheduler struct {
	job  Job
	log  *zap.Logger
	spec string
	cron *cron.Cron
}

// New validates spec and prepares the cron runner.
func New(job Job, log *zap.Logger, loc *time.Location, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("rollover cron %q: %w", spec, err)
	}
	cl := cronLogger{log.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{job: job, log: log, spec: spec, cron: c}, nil
}

// Run starts the cron loop and blocks until ctx is canceled, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.job.RunAll(ctx); err != nil {
			s.log.Error("scheduled rollover failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("spec", s.spec))

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger routes cron's internal messages to zap.
type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
