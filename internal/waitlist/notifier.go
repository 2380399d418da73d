package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/platform"
	"github.com/ebcbot/waitlist/internal/registry"
)

// notifyNext runs the notification gate for a room: at most one DM per
// distinct head-of-queue value. Concurrent passes for the same room collapse
// into one via singleflight. Returns how many unreachable heads were removed
// so the caller can refresh the display.
func (s *waitlistService) notifyNext(ctx context.Context, roomID string) int {
	v, _, _ := s.notifyGroup.Do(roomID, func() (any, error) {
		return s.runNotifyPass(ctx, roomID), nil
	})
	removed, _ := v.(int)
	return removed
}

// runNotifyPass walks the head of the queue until it finds a deliverable
// member or the queue empties. An unreachable head is treated as having left
// and the pass moves to the new head; each iteration either returns or
// shrinks the queue, so the walk is bounded by the queue length.
func (s *waitlistService) runNotifyPass(ctx context.Context, roomID string) int {
	removed := 0

	for {
		var (
			head models.WaitlistEntry
			ok   bool
			last string
		)
		err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
			head, ok = rm.Head()
			last = rm.LastNotified()
			if !ok && last != "" {
				rm.SetLastNotified("")
			}
			return nil
		})
		if err != nil || !ok {
			return removed
		}

		if head.UserID == last {
			return removed
		}

		member, err := s.pf.IsMember(ctx, head.UserID)
		if err != nil {
			s.l.Warnf(ctx, "membership check failed for %s: %v", head.UserID, err)
			return removed
		}
		if !member {
			s.dropHead(ctx, roomID, head.UserID, "departed_guild")
			removed++
			continue
		}

		err = s.pf.DirectMessage(ctx, head.UserID,
			fmt.Sprintf("You are now next in queue for the group in <#%s>. Please be ready to join when the host pulls you into the group.", roomID),
		)
		if errors.Is(err, platform.ErrUnreachable) {
			s.dropHead(ctx, roomID, head.UserID, "unreachable")
			removed++
			continue
		}
		if err != nil {
			s.l.Warnf(ctx, "failed to DM next-in-queue %s: %v", head.UserID, err)
		}

		_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
			rm.SetLastNotified(head.UserID)
			return nil
		})

		s.l.Infof(ctx, "notified next in queue - room_id: %s, user_id: %s", roomID, head.UserID)
		return removed
	}
}

func (s *waitlistService) dropHead(ctx context.Context, roomID, userID, reason string) {
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		rm.Leave(userID)
		return nil
	})
	s.publishLeft(ctx, roomID, userID, reason)
	s.l.Infof(ctx, "removed undeliverable head - room_id: %s, user_id: %s, reason: %s", roomID, userID, reason)
}
