package sweep

import (
	"context"
	"log"
	"time"

	"warranty-backend/config"
	"warranty-backend/internal/store"
	"warranty-backend/internal/warranty"
)

// Service runs the periodic expiry sweep: lapse active records whose
// coverage ended, then send the expiring-soon and just-expired
// notifications exactly once each, keyed on per-record markers.
type Service struct {
	cfg      config.SweepConfig
	store    store.Store
	notifier warranty.Dispatcher
	now      func() time.Time
}

// NewService creates a sweep service.
func NewService(cfg config.SweepConfig, st store.Store, notifier warranty.Dispatcher) *Service {
	if notifier == nil {
		notifier = warranty.Discard{}
	}
	return &Service{
		cfg:      cfg,
		store:    st,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes sweep passes on the configured interval until the
// context is cancelled. The first pass runs immediately.
func (s *Service) Run(ctx context.Context) {
	log.Printf("Expiry sweep started, interval %s", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("Expiry sweep shutting down")
			return
		}
	}
}

// RunOnce performs a single sweep pass. Safe to call concurrently
// with user-triggered writes; every mutation is a per-record atomic
// update.
func (s *Service) RunOnce(ctx context.Context) {
	now := s.now()

	swept, err := s.store.SweepExpired(ctx, now)
	if err != nil {
		log.Printf("Sweep: failed to expire lapsed warranties: %v", err)
	} else if swept > 0 {
		log.Printf("Sweep: marked %d warranties expired", swept)
	}

	s.notifyExpiring(ctx, now)
	s.notifyNewlyExpired(ctx, now)

	if s.cfg.CleanupAfterDays > 0 {
		olderThan := time.Duration(s.cfg.CleanupAfterDays) * 24 * time.Hour
		removed, err := s.store.CleanupOldRecords(ctx, now, olderThan)
		if err != nil {
			log.Printf("Sweep: failed to clean up old warranty records: %v", err)
		} else if removed > 0 {
			log.Printf("Sweep: removed %d old warranty records", removed)
		}
	}
}

func (s *Service) notifyExpiring(ctx context.Context, now time.Time) {
	window := time.Duration(s.cfg.ExpiringWindowDays) * 24 * time.Hour
	recs, err := s.store.FindExpiring(ctx, now, window)
	if err != nil {
		log.Printf("Sweep: failed to query expiring warranties: %v", err)
		return
	}

	for _, rec := range recs {
		s.notifier.Dispatch(rec, warranty.EventExpiring)
		if err := s.store.MarkNotified(ctx, rec.ID, store.NotifyExpiring, now); err != nil {
			log.Printf("Sweep: %v", err)
		}
	}
}

func (s *Service) notifyNewlyExpired(ctx context.Context, now time.Time) {
	window := time.Duration(s.cfg.NewlyExpiredWindowHours) * time.Hour
	recs, err := s.store.FindNewlyExpired(ctx, now, window)
	if err != nil {
		log.Printf("Sweep: failed to query newly expired warranties: %v", err)
		return
	}

	for _, rec := range recs {
		s.notifier.Dispatch(rec, warranty.EventExpired)
		if err := s.store.MarkNotified(ctx, rec.ID, store.NotifyExpired, now); err != nil {
			log.Printf("Sweep: %v", err)
		}
	}
}
