package waitlist

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/registry"
)

func TestBroadcastPostsAd(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	require.NoError(t, env.svc.SetGroupInfo(ctx, testRoomID, testHostID, "20", "60", ""))
	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, []string{"tank", "Cleric"}))

	msgs := env.pf.Messages(broadcastID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, fmt.Sprintf("<#%s>", testRoomID))
	assert.Contains(t, msgs[0].Content, "Classes Needed: :shield: Tank, :sparkling_heart: Cleric")
	assert.Contains(t, msgs[0].Content, "Levels: 20 - 60")

	err := env.reg.WithRoom(testRoomID, func(rm *registry.Room) error {
		assert.Equal(t, []string{msgs[0].ID}, rm.AdMessageIDs())
		return nil
	})
	require.NoError(t, err)
}

func TestBroadcastReplacesPreviousAd(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, nil))
	first := env.pf.Messages(broadcastID)
	require.Len(t, first, 1)

	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, []string{"Mage"}))

	// Exactly one ad is live and it is the newer one.
	second := env.pf.Messages(broadcastID)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Contains(t, second[0].Content, ":fire: Mage")
}

func TestBroadcastAnyClasses(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, nil))
	msgs := env.pf.Messages(broadcastID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Classes Needed: Any Classes")
	assert.Contains(t, msgs[0].Content, "Levels: Any - Any")

	// The "any" keyword wins over explicit classes around it.
	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, []string{"Tank", "any"}))
	msgs = env.pf.Messages(broadcastID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Classes Needed: Any Classes")
}

func TestBroadcastRejectsUnknownClass(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)

	err := env.svc.Broadcast(context.Background(), testRoomID, testHostID, []string{"Paladin"})
	assert.ErrorIs(t, err, errs.ErrInvalidClass)
	assert.Empty(t, env.pf.Messages(broadcastID))
}

func TestBroadcastRequiresHost(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)

	err := env.svc.Broadcast(context.Background(), testRoomID, "not-the-host", nil)
	assert.ErrorIs(t, err, errs.ErrNotHost)
}

func TestReconcileAdsKeepsLiveQueues(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, nil))

	env.svc.ReconcileAds(ctx)

	assert.Len(t, env.pf.Messages(broadcastID), 1)
}

func TestReconcileAdsDeletesOrphansByRoomRef(t *testing.T) {
	env := newTestEnv(t)
	env.startQueue(t, testRoomID)
	ctx := context.Background()

	require.NoError(t, env.svc.Broadcast(ctx, testRoomID, testHostID, nil))

	// The queue disappears out from under the ad.
	env.reg.Purge(testRoomID)

	env.svc.ReconcileAds(ctx)

	assert.Empty(t, env.pf.Messages(broadcastID))
}

func TestReconcileAdsSkipsUnparseableMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.pf.InjectMessage(broadcastID, "weekly raid schedule, no room reference here")
	env.pf.InjectMessage(broadcastID, "orphaned ad for <#4242>")

	env.svc.ReconcileAds(ctx)

	msgs := env.pf.Messages(broadcastID)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "weekly raid schedule")
}
