package service

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/ratezone/pkg/common/errors"
)

// reporterParser accepts an optional seconds field and descriptors such as
// "@every 30s".
var reporterParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// StartReporter logs a Stats snapshot on the given cron schedule, replacing
// any running reporter. Examples: "@every 1m", "*/30 * * * * *", "0 * * * *".
func (s *Service) StartReporter(spec string) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithParser(reporterParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, s.report); err != nil {
		return errors.NewValidationError(module, "reporter", spec, err.Error()).
			WithHint("use a cron expression or a descriptor such as @every 1m")
	}

	s.reporterMu.Lock()
	if s.closed.Load() {
		s.reporterMu.Unlock()
		return errors.ErrClosed
	}
	old := s.reporter
	s.reporter = c
	c.Start()
	s.reporterMu.Unlock()

	if old != nil {
		<-old.Stop().Done()
	}
	return nil
}

// StopReporter stops the reporter, waiting for a running report to finish.
func (s *Service) StopReporter() {
	s.reporterMu.Lock()
	c := s.reporter
	s.reporter = nil
	s.reporterMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) report() {
	stats := s.Stats()
	s.logger.Info("rate limit stats", "zones", len(stats), "buckets", s.BucketsCount())
	for _, st := range stats {
		s.logger.Info("zone stats",
			"zone", st.Zone,
			"live_buckets", st.LiveBuckets,
			"created", st.Created,
			"evicted", st.Evicted,
			"admitted", st.Admitted,
			"rejected", st.Rejected,
			"cancelled", st.Cancelled,
		)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("reporter: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("reporter: "+msg, append(keysAndValues, "error", err)...)
}
