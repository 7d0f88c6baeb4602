package services

import (
	"time"

	"github.com/huangang/campy/internal/config"
	"github.com/huangang/campy/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	JobDueDates = "due_dates"
	JobDigest   = "daily_digest"
	JobCleanup  = "audit_cleanup"

	jobLockTTL = time.Hour
)

// JobScheduler runs the background jobs on cron schedules. Each run takes
// a job lock so that only one process does the work per period.
type JobScheduler struct {
	db       *gorm.DB
	cfg      config.SchedulerConfig
	cron     *cron.Cron
	loc      *time.Location
	dueDates *DueDateChecker
	digest   *DigestService
	audit    *AuditService

	// retention is the audit log retention in days.
	retention int
	holder    string
}

func NewJobScheduler(db *gorm.DB, cfg config.SchedulerConfig, loc *time.Location, dueDates *DueDateChecker, digest *DigestService, audit *AuditService, retentionDays int) *JobScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &JobScheduler{
		db:        db,
		cfg:       cfg,
		cron:      cron.New(cron.WithLocation(loc)),
		loc:       loc,
		dueDates:  dueDates,
		digest:    digest,
		audit:     audit,
		retention: retentionDays,
		holder:    lockHolder(),
	}
}

func (s *JobScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.DueDateCron, func() { s.RunDueDates() }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.DigestCron, func() { s.RunDigest() }); err != nil {
		return err
	}
	if s.audit != nil && s.cfg.CleanupCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.CleanupCron, func() { s.RunCleanup() }); err != nil {
			return err
		}
	}
	s.cron.Start()
	logger.Info().
		Str("due_dates", s.cfg.DueDateCron).
		Str("digest", s.cfg.DigestCron).
		Str("cleanup", s.cfg.CleanupCron).
		Msg("job scheduler started")
	return nil
}

func (s *JobScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunDueDates runs the due date check once per day.
func (s *JobScheduler) RunDueDates() bool {
	key := time.Now().In(s.loc).Format("2006-01-02")
	return s.locked(JobDueDates, key, func() error {
		_, err := s.dueDates.Run()
		return err
	})
}

// RunDigest runs the digest once per hour.
func (s *JobScheduler) RunDigest() bool {
	key := time.Now().In(s.loc).Format("2006-01-02T15")
	return s.locked(JobDigest, key, func() error {
		_, err := s.digest.Run()
		return err
	})
}

// RunCleanup prunes audit logs past retention once per day.
func (s *JobScheduler) RunCleanup() bool {
	key := time.Now().In(s.loc).Format("2006-01-02")
	return s.locked(JobCleanup, key, func() error {
		n, err := s.audit.CleanupOlderThan(s.retention)
		if err == nil && n > 0 {
			logger.Info().Int64("deleted", n).Int("retention_days", s.retention).Msg("audit logs cleaned up")
		}
		return err
	})
}

func (s *JobScheduler) locked(name, key string, run func() error) bool {
	ok, err := AcquireJobLock(s.db, name, key, s.holder, jobLockTTL)
	if err != nil {
		logger.Error().Err(err).Str("job", name).Msg("failed to acquire job lock")
		return false
	}
	if !ok {
		logger.Debug().Str("job", name).Str("run_key", key).Msg("job already claimed")
		return false
	}
	if err := run(); err != nil {
		logger.Error().Err(err).Str("job", name).Msg("job failed")
	}
	return true
}
