// Package waitlist implements the queue-state engine: ordered per-room
// waitlists, host authority and failover, single-flight head-of-queue
// notification, recruitment broadcasts, and time-based eviction.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/ebcbot/waitlist/config"
	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/kafka"
	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/platform"
	"github.com/ebcbot/waitlist/internal/pubsub"
	"github.com/ebcbot/waitlist/internal/registry"
	"github.com/ebcbot/waitlist/pkg/logger"
)

type Service interface {
	// Lifecycle events from the platform.
	HandleRoomCreated(ctx context.Context, roomID, categoryID string) error
	AcceptPrompt(ctx context.Context, roomID, userID string) error
	DeclinePrompt(ctx context.Context, roomID string) error
	HandleRoomDeleted(ctx context.Context, roomID string) error
	HandleMemberRemoved(ctx context.Context, userID string) error

	// Member operations.
	Join(ctx context.Context, roomID, userID, class, level string) (JoinResult, error)
	Leave(ctx context.Context, roomID, userID string) (bool, error)
	Snapshot(ctx context.Context, roomID string) (models.RoomSnapshot, error)
	RenderQueue(ctx context.Context, roomID string) (string, error)

	// Host operations.
	SetGroupInfo(ctx context.Context, roomID, actorID, minLevel, maxLevel, note string) error
	ChangeHost(ctx context.Context, roomID, actorID, newHostID string) error
	Pull(ctx context.Context, roomID, actorID, targetID, destRoomID string) error
	RemoveMember(ctx context.Context, roomID, actorID, targetID string) error
	Broadcast(ctx context.Context, roomID, actorID string, classesNeeded []string) error

	// Background sweeps, driven by the Sweeper.
	CheckHosts(ctx context.Context)
	ReapStale(ctx context.Context)
	ReconcileAds(ctx context.Context)
}

type JoinResult struct {
	Position int
	Updated  bool
	Class    string
	Level    int
}

type waitlistService struct {
	reg  *registry.Registry
	pf   platform.Client
	prod kafka.Producer   // optional
	pub  pubsub.Publisher // optional
	cfg  config.WaitlistConfig
	l    logger.Logger

	notifyGroup singleflight.Group
}

func NewService(
	reg *registry.Registry,
	pf platform.Client,
	prod kafka.Producer,
	pub pubsub.Publisher,
	cfg config.WaitlistConfig,
	l logger.Logger,
) Service {
	return &waitlistService{
		reg:  reg,
		pf:   pf,
		prod: prod,
		pub:  pub,
		cfg:  cfg,
		l:    l,
	}
}

func (s *waitlistService) Join(ctx context.Context, roomID, userID, class, level string) (JoinResult, error) {
	canonical := models.NormalizeClass(class)
	if canonical == "" {
		return JoinResult{}, errs.ErrInvalidClass
	}

	lvl, ok := models.ParseLevel(level)
	if !ok {
		return JoinResult{}, errs.ErrInvalidLevel
	}

	var res JoinResult
	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		pos, updated, err := rm.Join(userID, canonical, lvl, time.Now())
		if err != nil {
			return err
		}
		rm.Touch(time.Now())
		res = JoinResult{Position: pos, Updated: updated, Class: canonical, Level: lvl}
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}

	s.afterMutation(ctx, roomID)

	if s.prod != nil {
		if err := s.prod.PublishWaitlistJoined(ctx, kafka.WaitlistJoinedEvent{
			EventID:  uuid.New().String(),
			RoomID:   roomID,
			UserID:   userID,
			Class:    res.Class,
			Level:    res.Level,
			Position: res.Position,
			Updated:  res.Updated,
		}); err != nil {
			// Log error but don't fail the request
			s.l.Errorf(ctx, "failed to publish waitlist joined event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeMemberJoined, userID)

	s.l.Infof(ctx, "member joined waitlist - room_id: %s, user_id: %s, class: %s, position: %d",
		roomID, userID, res.Class, res.Position)

	return res, nil
}

func (s *waitlistService) Leave(ctx context.Context, roomID, userID string) (bool, error) {
	var removed bool
	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		removed = rm.Leave(userID)
		if removed {
			rm.Touch(time.Now())
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.afterMutation(ctx, roomID)

	if removed {
		s.publishLeft(ctx, roomID, userID, "user_left")
		s.publishUpdate(ctx, roomID, models.UpdateTypeMemberLeft, userID)
	}

	return removed, nil
}

func (s *waitlistService) Snapshot(ctx context.Context, roomID string) (models.RoomSnapshot, error) {
	return s.reg.Snapshot(roomID)
}

func (s *waitlistService) RenderQueue(ctx context.Context, roomID string) (string, error) {
	snap, err := s.reg.Snapshot(roomID)
	if err != nil {
		return "", err
	}
	return renderQueueView(snap, s.cfg), nil
}

func (s *waitlistService) SetGroupInfo(ctx context.Context, roomID, actorID, minLevel, maxLevel, note string) error {
	var c models.GroupConstraints
	if minLevel != "" {
		lvl, ok := models.ParseLevel(minLevel)
		if !ok {
			return errs.ErrInvalidLevel
		}
		c.MinLevel = lvl
	}
	if maxLevel != "" {
		lvl, ok := models.ParseLevel(maxLevel)
		if !ok {
			return errs.ErrInvalidLevel
		}
		c.MaxLevel = lvl
	}
	c.Note = note

	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if err := requireHost(rm, actorID); err != nil {
			return err
		}
		rm.SetConstraints(c)
		rm.Touch(time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, roomID)
	return nil
}

func (s *waitlistService) ChangeHost(ctx context.Context, roomID, actorID, newHostID string) error {
	present, err := s.pf.ListPresentMembers(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to list present members: %w", err)
	}
	if !contains(present, newHostID) {
		return errs.ErrNotPresent
	}

	err = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if err := requireHost(rm, actorID); err != nil {
			return err
		}
		rm.SetHost(models.HostOf(newHostID))
		rm.Touch(time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, roomID)

	if s.prod != nil {
		if err := s.prod.PublishHostChanged(ctx, kafka.HostChangedEvent{
			EventID: uuid.New().String(),
			RoomID:  roomID,
			HostID:  newHostID,
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish host changed event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeHostChanged, newHostID)

	s.l.Infof(ctx, "host changed - room_id: %s, new_host: %s", roomID, newHostID)
	return nil
}

// Pull moves a queued member into the host's current room and notifies them.
// The entry stays queued until RemoveMember confirms the removal.
func (s *waitlistService) Pull(ctx context.Context, roomID, actorID, targetID, destRoomID string) error {
	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if err := requireHost(rm, actorID); err != nil {
			return err
		}
		if !rm.HasEntry(targetID) {
			return errs.ErrNotQueued
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.pf.MoveMemberToRoom(ctx, targetID, destRoomID); err != nil {
		return fmt.Errorf("failed to move member: %w", err)
	}

	if err := s.pf.DirectMessage(ctx, targetID,
		fmt.Sprintf("You have been pulled into a group by <@%s> in <#%s>.", actorID, destRoomID),
	); err != nil && !errors.Is(err, platform.ErrUnreachable) {
		s.l.Warnf(ctx, "failed to DM pulled member %s: %v", targetID, err)
	}

	if s.prod != nil {
		if err := s.prod.PublishMemberPulled(ctx, kafka.MemberPulledEvent{
			EventID:    uuid.New().String(),
			RoomID:     roomID,
			UserID:     targetID,
			PulledByID: actorID,
			DestRoomID: destRoomID,
		}); err != nil {
			s.l.Errorf(ctx, "failed to publish member pulled event: %v", err)
		}
	}
	s.publishUpdate(ctx, roomID, models.UpdateTypeMemberPulled, targetID)

	s.l.Infof(ctx, "member pulled - room_id: %s, user_id: %s, dest: %s", roomID, targetID, destRoomID)
	return nil
}

// RemoveMember is the host's confirm step after a pull: drop the entry.
func (s *waitlistService) RemoveMember(ctx context.Context, roomID, actorID, targetID string) error {
	var removed bool
	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if err := requireHost(rm, actorID); err != nil {
			return err
		}
		removed = rm.Leave(targetID)
		if removed {
			rm.Touch(time.Now())
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, roomID)

	if removed {
		s.publishLeft(ctx, roomID, targetID, "pulled")
		s.publishUpdate(ctx, roomID, models.UpdateTypeMemberLeft, targetID)
	}
	return nil
}

// afterMutation pushes the canonical view to the display message and runs
// the notification gate. A gate pass can itself remove unreachable heads,
// in which case the display is refreshed once more.
func (s *waitlistService) afterMutation(ctx context.Context, roomID string) {
	s.syncDisplay(ctx, roomID)
	if removed := s.notifyNext(ctx, roomID); removed > 0 {
		s.syncDisplay(ctx, roomID)
	}
}

func (s *waitlistService) publishLeft(ctx context.Context, roomID, userID, reason string) {
	if s.prod == nil {
		return
	}
	if err := s.prod.PublishWaitlistLeft(ctx, kafka.WaitlistLeftEvent{
		EventID: uuid.New().String(),
		RoomID:  roomID,
		UserID:  userID,
		Reason:  reason,
	}); err != nil {
		s.l.Errorf(ctx, "failed to publish waitlist left event: %v", err)
	}
}

func (s *waitlistService) publishUpdate(ctx context.Context, roomID string, t models.UpdateType, userIDs ...string) {
	if s.pub == nil {
		return
	}

	var qlen int
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		qlen = rm.Len()
		return nil
	})

	if err := s.pub.PublishRoomUpdate(ctx, models.RoomUpdateEvent{
		RoomID:          roomID,
		UpdateType:      t,
		AffectedUserIDs: userIDs,
		QueueLength:     qlen,
		Timestamp:       time.Now(),
	}); err != nil {
		s.l.Errorf(ctx, "failed to publish room update: %v", err)
	}
}

// requireHost rejects actors other than the current host. Rooms with no host
// set accept any actor, matching the prompt-era behavior.
func requireHost(rm *registry.Room, actorID string) error {
	h := rm.Host()
	if h.Set && h.UserID != actorID {
		return errs.ErrNotHost
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
