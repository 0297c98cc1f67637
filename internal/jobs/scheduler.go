// Package jobs runs the periodic maintenance sweeps.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/appserv/internal/domain/repository"
	"github.com/oksasatya/appserv/internal/metrics"
	"github.com/oksasatya/appserv/pkg/helpers"
)

// SessionSweeper deletes sessions expired at now.
type SessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context, now int64) (int64, error)
}

// AvatarCatalog lists the avatar names still referenced by memberships.
type AvatarCatalog interface {
	Avatars(ctx context.Context) ([]string, error)
}

// Expirer is a verification store that needs explicit eviction.
type Expirer interface {
	Sweep(now time.Time) int
}

type Scheduler struct {
	Sessions SessionSweeper
	Catalog  AvatarCatalog
	Avatars  repository.AvatarStore
	Verify   Expirer
	Metrics  *metrics.Collector
	Logger   *logrus.Logger
	Now      func() time.Time
	Timeout  time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	suspect map[string]struct{}
}

// New schedules one sweep round on spec (cron syntax with a seconds field, or a descriptor).
// Nil collaborators are skipped.
func New(spec string, s *Scheduler) (*Scheduler, error) {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	s.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(s.Logger)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(s.Logger)), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running round to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce performs every sweep. Failures are logged and do not stop the other sweeps.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if n, err := s.SweepSessions(ctx); err != nil {
		helpers.LogError(s.Logger, "sweep expired sessions", err, logrus.Fields{"job": "sessions"})
	} else if n > 0 {
		s.Logger.WithField("deleted", n).Info("expired sessions swept")
	}
	s.SweepVerification()
	if n, err := s.PurgeAvatars(ctx); err != nil {
		helpers.LogError(s.Logger, "purge orphan avatars", err, logrus.Fields{"job": "avatars"})
	} else if n > 0 {
		s.Logger.WithField("deleted", n).Info("orphan avatars purged")
	}
}

func (s *Scheduler) SweepSessions(ctx context.Context) (int64, error) {
	if s.Sessions == nil {
		return 0, nil
	}
	n, err := s.Sessions.DeleteExpiredSessions(ctx, s.Now().Unix())
	if err != nil {
		return 0, err
	}
	s.Metrics.RecordSessionsSwept(n)
	return n, nil
}

func (s *Scheduler) SweepVerification() int {
	if s.Verify == nil {
		return 0
	}
	n := s.Verify.Sweep(s.Now())
	s.Metrics.RecordVerifySwept(n)
	return n
}

// PurgeAvatars deletes stored files no membership references.
// A file is only deleted once it was found orphaned in two consecutive rounds,
// so an upload whose membership update has not committed yet survives.
func (s *Scheduler) PurgeAvatars(ctx context.Context) (int, error) {
	if s.Avatars == nil || s.Catalog == nil {
		return 0, nil
	}
	stored, err := s.Avatars.List(ctx)
	if err != nil {
		return 0, err
	}
	used, err := s.Catalog.Avatars(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(used))
	for _, name := range used {
		referenced[name] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := map[string]struct{}{}
	deleted := 0
	for _, name := range stored {
		if _, ok := referenced[name]; ok {
			continue
		}
		if _, seen := s.suspect[name]; !seen {
			next[name] = struct{}{}
			continue
		}
		if err := s.Avatars.Delete(ctx, name); err != nil {
			s.Logger.WithError(err).WithField("avatar", name).Warn("delete orphan avatar")
			next[name] = struct{}{}
			continue
		}
		deleted++
	}
	s.suspect = next
	s.Metrics.RecordAvatarsPurged(deleted)
	return deleted, nil
}
