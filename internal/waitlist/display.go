package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebcbot/waitlist/config"
	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/platform"
	"github.com/ebcbot/waitlist/internal/registry"
)

// syncDisplay re-renders the canonical queue view and edits the tracked
// display message in place. A missing message clears the tracking reference;
// the display is never recreated automatically.
func (s *waitlistService) syncDisplay(ctx context.Context, roomID string) {
	var (
		msgID string
		snap  models.RoomSnapshot
	)
	err := s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		msgID = rm.DisplayMessageID()
		snap = rm.Snapshot()
		return nil
	})
	if err != nil || msgID == "" {
		return
	}

	content := renderQueueView(snap, s.cfg)

	err = s.pf.EditMessage(ctx, roomID, msgID, content)
	if errors.Is(err, platform.ErrNotFound) {
		s.l.Warnf(ctx, "display message %s not found for room %s, dropping tracking", msgID, roomID)
		_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
			if rm.DisplayMessageID() == msgID {
				rm.SetDisplayMessageID("")
			}
			return nil
		})
		return
	}
	if err != nil {
		s.l.Errorf(ctx, "failed to update display message for room %s: %v", roomID, err)
		return
	}

	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		rm.Touch(time.Now())
		return nil
	})
}

// renderQueueView builds the canonical textual queue view: host line, group
// info, ordered entries with rank, and the size footer.
func renderQueueView(snap models.RoomSnapshot, cfg config.WaitlistConfig) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Queue for <#%s>\n", snap.RoomID)

	if snap.Host.Set {
		fmt.Fprintf(&b, "Host: <@%s>\n", snap.Host.UserID)
	} else {
		b.WriteString("Host: not set\n")
	}

	c := snap.Constraints
	if c.MinLevel > 0 || c.MaxLevel > 0 || c.Note != "" {
		b.WriteString("\nGroup Info:\n")
		if c.MinLevel > 0 {
			fmt.Fprintf(&b, "- Minimum Level: %d\n", c.MinLevel)
		}
		if c.MaxLevel > 0 {
			fmt.Fprintf(&b, "- Maximum Level: %d\n", c.MaxLevel)
		}
		if c.Note != "" {
			fmt.Fprintf(&b, "- Description: %s\n", c.Note)
		}
	}

	if len(snap.Entries) == 0 {
		b.WriteString("\nNo one is in the queue yet. Use Join to add yourself.\n")
	} else {
		b.WriteString("\nQueued Members:\n")
		for i, e := range snap.Entries {
			emoji := models.ClassEmojis[e.Class]
			if emoji != "" {
				emoji += " "
			}
			fmt.Fprintf(&b, "%d. %s<@%s> - %s (Lv %d)\n", i+1, emoji, e.UserID, e.Class, e.Level)
		}
	}

	fmt.Fprintf(&b, "\nCurrent Queue Size: %d/%d\n", len(snap.Entries), cfg.MaxQueueSize)
	fmt.Fprintf(&b, "Group Size: %d players\n", cfg.GroupSize)

	return b.String()
}
