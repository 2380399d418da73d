package waitlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ebcbot/waitlist/internal/kafka"
	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/registry"
)

// sweepConcurrency bounds how many rooms a sweep touches at once. Each room
// is processed under its own lock; a sweep never holds two room locks.
const sweepConcurrency = 4

// CheckHosts verifies that every assigned host is still a guild member and
// fails over rooms whose host is gone. One room failing never aborts the
// sweep.
func (s *waitlistService) CheckHosts(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for _, roomID := range s.reg.RoomIDs() {
		roomID := roomID
		g.Go(func() error {
			var host models.HostAssignment
			if err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
				host = rm.Host()
				return nil
			}); err != nil {
				return nil
			}
			if !host.Set {
				return nil
			}

			member, err := s.pf.IsMember(ctx, host.UserID)
			if err != nil {
				s.l.Warnf(ctx, "host check failed for room %s: %v", roomID, err)
				return nil
			}
			if member {
				return nil
			}

			s.l.Infof(ctx, "host %s no longer a member, failing over room %s", host.UserID, roomID)
			s.failoverHost(ctx, roomID)
			return nil
		})
	}

	_ = g.Wait()
}

// ReapStale evicts rooms whose backing room no longer exists or whose queue
// has been inactive beyond the retention window. Eviction is a silent
// cleanup: the same state set as room-deletion teardown is purged, but no
// member is notified.
func (s *waitlistService) ReapStale(ctx context.Context) {
	now := time.Now()

	var g errgroup.Group
	g.SetLimit(sweepConcurrency)

	for _, roomID := range s.reg.RoomIDs() {
		roomID := roomID
		g.Go(func() error {
			exists, err := s.pf.RoomExists(ctx, roomID)
			if err != nil {
				s.l.Warnf(ctx, "room existence check failed for %s: %v", roomID, err)
				return nil
			}

			evict := !exists
			if !evict {
				var last time.Time
				if err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
					last = rm.LastActive()
					return nil
				}); err != nil {
					return nil
				}
				evict = now.Sub(last) > s.cfg.InactivityWindow
			}

			if evict {
				s.evict(ctx, roomID)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (s *waitlistService) evict(ctx context.Context, roomID string) {
	var adIDs []string
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		adIDs = rm.AdMessageIDs()
		return nil
	})

	for _, msgID := range adIDs {
		s.deleteAd(ctx, msgID)
	}

	if s.prod != nil {
		if err := s.prod.PublishWaitlistEnded(ctx, kafka.WaitlistEndedEvent{
			EventID: uuid.New().String(),
			RoomID:  roomID,
			Reason:  "evicted",
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish waitlist ended event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeQueueEnded)

	s.reg.Purge(roomID)

	s.l.Infof(ctx, "evicted stale queue - room_id: %s", roomID)
}
