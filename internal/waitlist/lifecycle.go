package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/kafka"
	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/platform"
	"github.com/ebcbot/waitlist/internal/registry"
)

const startPrompt = "This looks like a new group voice channel.\n\n" +
	"Do you want to set up a queue for players waiting to join this group?\n\n" +
	"All queue controls will appear here in the voice channel chat."

// HandleRoomCreated posts the start-queue prompt into a freshly created room
// in the managed category and tracks the room as provisioned.
func (s *waitlistService) HandleRoomCreated(ctx context.Context, roomID, categoryID string) error {
	if s.cfg.ManagedCategoryID != "" && categoryID != s.cfg.ManagedCategoryID {
		return nil
	}

	promptID, err := s.pf.SendMessage(ctx, roomID, startPrompt)
	if err != nil {
		return fmt.Errorf("failed to post start prompt: %w", err)
	}

	if err := s.reg.TrackPrompt(roomID, promptID, time.Now()); err != nil {
		return err
	}

	s.l.Infof(ctx, "posted start prompt - room_id: %s, message_id: %s", roomID, promptID)
	return nil
}

// AcceptPrompt activates the queue with the accepting user as host. The
// prompt message becomes the tracked display message; when no prompt is
// tracked (confirmation arriving after a restart) a fresh display message is
// posted instead.
func (s *waitlistService) AcceptPrompt(ctx context.Context, roomID, userID string) error {
	var (
		displayID string
		active    bool
	)
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		displayID = rm.PromptMessageID()
		active = rm.Phase() == models.PhaseActive
		return nil
	})
	if active {
		return errs.ErrQueueExists
	}

	posted := false
	if displayID == "" {
		id, err := s.pf.SendMessage(ctx, roomID, "Setting up the queue...")
		if err != nil {
			return fmt.Errorf("failed to post display message: %w", err)
		}
		displayID = id
		posted = true
	}

	if err := s.reg.Activate(roomID, userID, displayID, time.Now()); err != nil {
		// A concurrent accept won the transition. Take down the message this
		// call posted so the loser leaves nothing behind.
		if posted {
			if delErr := s.pf.DeleteMessage(ctx, roomID, displayID); delErr != nil && !errors.Is(delErr, platform.ErrNotFound) {
				s.l.Warnf(ctx, "failed to delete superseded display message %s: %v", displayID, delErr)
			}
		}
		return err
	}

	s.syncDisplay(ctx, roomID)

	if s.prod != nil {
		if err := s.prod.PublishWaitlistStarted(ctx, kafka.WaitlistStartedEvent{
			EventID:   uuid.New().String(),
			RoomID:    roomID,
			HostID:    userID,
			StartedAt: time.Now(),
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish waitlist started event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeQueueStarted, userID)

	s.l.Infof(ctx, "queue started - room_id: %s, host: %s", roomID, userID)
	return nil
}

// DeclinePrompt disables the prompt and drops the provisioned state. Active
// queues are unaffected.
func (s *waitlistService) DeclinePrompt(ctx context.Context, roomID string) error {
	var promptID string
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		promptID = rm.PromptMessageID()
		return nil
	})

	s.reg.Discard(roomID)

	if promptID != "" {
		err := s.pf.EditMessage(ctx, roomID, promptID, "Queue was not created for this channel.")
		if err != nil && !errors.Is(err, platform.ErrNotFound) {
			s.l.Warnf(ctx, "failed to disable prompt %s: %v", promptID, err)
		}
	}

	s.l.Infof(ctx, "prompt declined - room_id: %s", roomID)
	return nil
}

// HandleRoomDeleted tears down all state for a deleted room: advertisements
// are deleted, every queued member is told the waitlist ended, and only then
// is the state purged.
func (s *waitlistService) HandleRoomDeleted(ctx context.Context, roomID string) error {
	if !s.reg.Has(roomID) {
		return nil
	}

	var (
		entries []models.WaitlistEntry
		adIDs   []string
	)
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		entries = rm.Entries()
		adIDs = rm.AdMessageIDs()
		return nil
	})

	for _, msgID := range adIDs {
		s.deleteAd(ctx, msgID)
	}

	for _, e := range entries {
		err := s.pf.DirectMessage(ctx, e.UserID,
			fmt.Sprintf("The waitlist for <#%s> has ended and is no longer active. You have been removed from that waitlist.", roomID),
		)
		if err != nil && !errors.Is(err, platform.ErrUnreachable) {
			s.l.Warnf(ctx, "failed to DM %s about ended waitlist: %v", e.UserID, err)
		}
	}

	userIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		userIDs = append(userIDs, e.UserID)
	}

	if s.prod != nil {
		if err := s.prod.PublishWaitlistEnded(ctx, kafka.WaitlistEndedEvent{
			EventID:       uuid.New().String(),
			RoomID:        roomID,
			QueuedUserIDs: userIDs,
			Reason:        "room_deleted",
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish waitlist ended event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeQueueEnded, userIDs...)

	s.reg.Purge(roomID)

	s.l.Infof(ctx, "queue torn down - room_id: %s, notified: %d", roomID, len(entries))
	return nil
}

// HandleMemberRemoved reacts to a user leaving the guild: their entries are
// removed from every room, and any room they hosted fails over.
func (s *waitlistService) HandleMemberRemoved(ctx context.Context, userID string) error {
	for _, roomID := range s.reg.RoomIDs() {
		var (
			removed bool
			wasHost bool
		)
		err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
			removed = rm.Leave(userID)
			h := rm.Host()
			wasHost = h.Set && h.UserID == userID
			return nil
		})
		if err != nil {
			continue
		}

		if removed {
			s.l.Infof(ctx, "removed departed member %s from queue %s", userID, roomID)
			s.publishLeft(ctx, roomID, userID, "departed_guild")
			s.publishUpdate(ctx, roomID, models.UpdateTypeMemberLeft, userID)
		}

		if wasHost {
			s.failoverHost(ctx, roomID)
		}

		s.afterMutation(ctx, roomID)
	}
	return nil
}

// failoverHost reassigns a room whose host is gone to the first member
// currently present, or clears the host when the room is empty. The new
// host, if any, is notified by DM.
func (s *waitlistService) failoverHost(ctx context.Context, roomID string) {
	present, err := s.pf.ListPresentMembers(ctx, roomID)
	if err != nil {
		s.l.Warnf(ctx, "failed to list present members for %s: %v", roomID, err)
		present = nil
	}

	var newHost string
	if len(present) > 0 {
		newHost = present[0]
	}

	err = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if newHost != "" {
			rm.SetHost(models.HostOf(newHost))
		} else {
			rm.SetHost(models.HostUnset())
		}
		return nil
	})
	if err != nil {
		return
	}

	if newHost != "" {
		err := s.pf.DirectMessage(ctx, newHost,
			fmt.Sprintf("You have been automatically assigned as the host for the waitlist in <#%s> because the previous host left.", roomID),
		)
		if err != nil && !errors.Is(err, platform.ErrUnreachable) {
			s.l.Warnf(ctx, "failed to DM new host %s: %v", newHost, err)
		}
		s.l.Infof(ctx, "host failover - room_id: %s, new_host: %s", roomID, newHost)
	} else {
		s.l.Infof(ctx, "host failover - room_id: %s, host cleared", roomID)
	}

	if s.prod != nil {
		if err := s.prod.PublishHostChanged(ctx, kafka.HostChangedEvent{
			EventID:  uuid.New().String(),
			RoomID:   roomID,
			HostID:   newHost,
			Failover: true,
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish host changed event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeHostChanged, newHost)

	s.syncDisplay(ctx, roomID)
}
