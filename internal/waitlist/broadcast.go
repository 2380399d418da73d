package waitlist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/internal/platform"
	"github.com/ebcbot/waitlist/internal/registry"
)

// roomRefPattern extracts the room reference embedded in an advertisement
// body. The reconciliation fallback that relies on it is best-effort and may
// miss malformed messages.
var roomRefPattern = regexp.MustCompile(`<#(\d+)>`)

// Broadcast posts a recruitment advertisement for the room's waitlist.
// Previously tracked advertisements are deleted first so at most one ad is
// ever live per room; the tracked set is then replaced with the new id.
func (s *waitlistService) Broadcast(ctx context.Context, roomID, actorID string, classesNeeded []string) error {
	classesText, err := classesNeededText(classesNeeded)
	if err != nil {
		return err
	}

	var (
		oldIDs      []string
		constraints models.GroupConstraints
	)
	err = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		if err := requireHost(rm, actorID); err != nil {
			return err
		}
		oldIDs = rm.AdMessageIDs()
		constraints = rm.Constraints()
		return nil
	})
	if err != nil {
		return err
	}

	// Delete stale ads before posting the replacement, so two ads for the
	// same room are never live at once.
	for _, msgID := range oldIDs {
		s.deleteAd(ctx, msgID)
	}
	_ = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		rm.SetAdMessageIDs(nil)
		return nil
	})

	content := renderAd(roomID, classesText, constraints)
	newID, err := s.pf.SendMessage(ctx, s.cfg.BroadcastChannelID, content)
	if err != nil {
		return fmt.Errorf("failed to post broadcast: %w", err)
	}

	err = s.reg.WithRoom(roomID, func(rm *registry.Room) error {
		rm.SetAdMessageIDs([]string{newID})
		rm.Touch(time.Now())
		return nil
	})
	if err != nil {
		return err
	}

	s.l.Infof(ctx, "posted broadcast - room_id: %s, message_id: %s, replaced: %d", roomID, newID, len(oldIDs))
	return nil
}

// ReconcileAds scans the broadcast surface for this bot's advertisements
// whose backing queue no longer exists and deletes them. Untracked messages
// fall back to the room reference embedded in the body; messages without one
// are skipped. Failures on one message never abort the scan.
func (s *waitlistService) ReconcileAds(ctx context.Context) {
	if s.cfg.BroadcastChannelID == "" {
		return
	}

	index := s.reg.AdMessages()

	msgs, err := s.pf.ListBotMessages(ctx, s.cfg.BroadcastChannelID, s.cfg.AdScanLimit)
	if err != nil {
		s.l.Errorf(ctx, "broadcast reconciliation scan failed: %v", err)
		return
	}

	deleted := 0
	for _, m := range msgs {
		if roomID, tracked := index[m.ID]; tracked {
			if s.reg.Has(roomID) {
				continue
			}
			s.deleteAd(ctx, m.ID)
			deleted++
			continue
		}

		match := roomRefPattern.FindStringSubmatch(m.Content)
		if match == nil {
			continue
		}
		if s.reg.Has(match[1]) {
			continue
		}

		s.deleteAd(ctx, m.ID)
		deleted++
	}

	if deleted > 0 {
		s.l.Infof(ctx, "broadcast reconciliation deleted %d orphaned message(s)", deleted)
	}
}

// deleteAd removes one advertisement message, tolerating "already gone".
func (s *waitlistService) deleteAd(ctx context.Context, msgID string) {
	err := s.pf.DeleteMessage(ctx, s.cfg.BroadcastChannelID, msgID)
	if err != nil && !errors.Is(err, platform.ErrNotFound) {
		s.l.Warnf(ctx, "failed to delete broadcast message %s: %v", msgID, err)
	}
}

func classesNeededText(classesNeeded []string) (string, error) {
	if len(classesNeeded) == 0 {
		return "Any Classes", nil
	}

	pretty := make([]string, 0, len(classesNeeded))
	for _, c := range classesNeeded {
		if strings.EqualFold(c, "any") {
			return "Any Classes", nil
		}
		canonical := models.NormalizeClass(c)
		if canonical == "" {
			return "", errs.ErrInvalidClass
		}
		if emoji := models.ClassEmojis[canonical]; emoji != "" {
			pretty = append(pretty, emoji+" "+canonical)
		} else {
			pretty = append(pretty, canonical)
		}
	}
	return strings.Join(pretty, ", "), nil
}

func renderAd(roomID, classesText string, c models.GroupConstraints) string {
	minDisplay := "Any"
	if c.MinLevel > 0 {
		minDisplay = fmt.Sprintf("%d", c.MinLevel)
	}
	maxDisplay := "Any"
	if c.MaxLevel > 0 {
		maxDisplay = fmt.Sprintf("%d", c.MaxLevel)
	}

	var b strings.Builder
	b.WriteString("Waitlist Active\n")
	fmt.Fprintf(&b, "Waitlist currently active in <#%s>.\n\n", roomID)
	b.WriteString("If you meet the requirements, please sign up in that channel's waitlist.\n\n")
	fmt.Fprintf(&b, "Classes Needed: %s\n", classesText)
	fmt.Fprintf(&b, "Levels: %s - %s\n", minDisplay, maxDisplay)
	if c.Note != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Note)
	}
	return b.String()
}
