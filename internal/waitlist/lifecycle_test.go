package waitlist

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ebcbot/waitlist/config"
	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/models"
)

func TestHandleRoomCreatedPostsPrompt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.pf.AddRoom(testRoomID)
	require.NoError(t, env.svc.HandleRoomCreated(ctx, testRoomID, ""))

	msgs := env.pf.Messages(testRoomID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "set up a queue")
	assert.True(t, env.reg.Has(testRoomID))
}

func TestHandleRoomCreatedIgnoresOtherCategories(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.WaitlistConfig) {
		cfg.ManagedCategoryID = testCategory
	})
	ctx := context.Background()

	env.pf.AddRoom(testRoomID)
	require.NoError(t, env.svc.HandleRoomCreated(ctx, testRoomID, otherCategory))

	assert.Empty(t, env.pf.Messages(testRoomID))
	assert.False(t, env.reg.Has(testRoomID))
}

func TestAcceptPromptActivatesQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.pf.AddRoom(testRoomID)
	env.pf.AddMember(testHostID)
	require.NoError(t, env.svc.HandleRoomCreated(ctx, testRoomID, ""))
	require.NoError(t, env.svc.AcceptPrompt(ctx, testRoomID, testHostID))

	// The prompt message was repurposed as the queue display.
	msgs := env.pf.Messages(testRoomID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Queue for")

	snap, err := env.svc.Snapshot(ctx, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseActive, snap.Phase)
	assert.Equal(t, models.HostOf(testHostID), snap.Host)

	assert.ErrorIs(t, env.svc.AcceptPrompt(ctx, testRoomID, "someone-else"), errs.ErrQueueExists)
}

func TestAcceptPromptWithoutTrackedPrompt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// No HandleRoomCreated ran, as after a process restart.
	env.pf.AddRoom(testRoomID)
	env.pf.AddMember(testHostID)
	require.NoError(t, env.svc.AcceptPrompt(ctx, testRoomID, testHostID))

	msgs := env.pf.Messages(testRoomID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Queue for")
	assert.True(t, env.reg.Has(testRoomID))
}

func TestConcurrentAcceptsLeaveOneDisplay(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newTestEnv(t)
		ctx := context.Background()

		env.pf.AddRoom(testRoomID)
		env.pf.AddMember("host-a", "host-b")

		var wg sync.WaitGroup
		results := make([]error, 2)
		for j, host := range []string{"host-a", "host-b"} {
			wg.Add(1)
			go func(j int, host string) {
				defer wg.Done()
				results[j] = env.svc.AcceptPrompt(ctx, testRoomID, host)
			}(j, host)
		}
		wg.Wait()

		// Exactly one accept wins the transition; the loser must not leave a
		// second message on the room.
		if results[0] == nil {
			assert.ErrorIs(t, results[1], errs.ErrQueueExists)
		} else {
			assert.ErrorIs(t, results[0], errs.ErrQueueExists)
			assert.NoError(t, results[1])
		}
		assert.Len(t, env.pf.Messages(testRoomID), 1)
		assert.True(t, env.reg.Has(testRoomID))
	}
}

func TestDeclinePrompt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.pf.AddRoom(testRoomID)
	require.NoError(t, env.svc.HandleRoomCreated(ctx, testRoomID, ""))
	require.NoError(t, env.svc.DeclinePrompt(ctx, testRoomID))

	assert.False(t, env.reg.Has(testRoomID))

	msgs := env.pf.Messages(testRoomID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "not created")
}

func TestHandleRoomDeleted(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	env.join(t, testRoomID, "user-1", "Tank", "10")
	env.join(t, testRoomID, "user-2", "Cleric", "20")
	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, nil))

	env.pf.RemoveRoom(testRoomID)
	require.NoError(t, env.svc.HandleRoomDeleted(ctx, testRoomID))

	// Everyone queued hears that the waitlist ended, the ad is gone, and no
	// state survives.
	for _, userID := range []string{"user-1", "user-2"} {
		dms := env.pf.DMs(userID)
		require.NotEmpty(t, dms, "expected teardown DM for %s", userID)
		assert.Contains(t, dms[len(dms)-1], "has ended")
	}
	assert.Empty(t, env.pf.Messages(broadcastID))
	assert.False(t, env.reg.Has(testRoomID))
}

func TestHandleRoomDeletedUntracked(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.HandleRoomDeleted(context.Background(), "never-tracked"))
}

func TestHandleMemberRemovedDropsEntries(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	env.join(t, testRoomID, "user-1", "Tank", "10")
	env.join(t, testRoomID, "user-2", "Cleric", "20")

	env.pf.RemoveMember("user-1")
	require.NoError(t, env.svc.HandleMemberRemoved(ctx, "user-1"))

	snap, err := env.svc.Snapshot(ctx, testRoomID)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "user-2", snap.Entries[0].UserID)
}

func TestHandleMemberRemovedFailsOverHost(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	env.pf.AddMember("user-2")
	env.pf.SetPresent(testRoomID, "user-2")

	env.pf.RemoveMember(testHostID)
	require.NoError(t, env.svc.HandleMemberRemoved(ctx, testHostID))

	snap, err := env.svc.Snapshot(ctx, testRoomID)
	require.NoError(t, err)
	assert.Equal(t, models.HostOf("user-2"), snap.Host)

	dms := env.pf.DMs("user-2")
	require.NotEmpty(t, dms)
	assert.Contains(t, dms[len(dms)-1], "automatically assigned as the host")
}

func TestHandleMemberRemovedClearsHostWhenRoomEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	env.pf.SetPresent(testRoomID)
	env.pf.RemoveMember(testHostID)
	require.NoError(t, env.svc.HandleMemberRemoved(ctx, testHostID))

	snap, err := env.svc.Snapshot(ctx, testRoomID)
	require.NoError(t, err)
	assert.False(t, snap.Host.Set)
}
