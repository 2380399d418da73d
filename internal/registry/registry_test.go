package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/ebcbot/waitlist/internal/errors"
	"github.com/ebcbot/waitlist/internal/models"
)

func activeRegistry(t *testing.T, roomID string) *Registry {
	t.Helper()
	r := New(50)
	require.NoError(t, r.Activate(roomID, "host-1", "display-1", time.Now()))
	return r
}

func TestTrackPrompt(t *testing.T) {
	r := New(50)

	require.NoError(t, r.TrackPrompt("room-1", "prompt-1", time.Now()))
	assert.True(t, r.Has("room-1"))

	err := r.WithRoom("room-1", func(rm *Room) error {
		assert.Equal(t, models.PhaseProvisioned, rm.Phase())
		assert.Equal(t, "prompt-1", rm.PromptMessageID())
		return nil
	})
	require.NoError(t, err)

	assert.ErrorIs(t, r.TrackPrompt("room-1", "prompt-2", time.Now()), errs.ErrQueueExists)
}

func TestActivate(t *testing.T) {
	t.Run("from provisioned", func(t *testing.T) {
		r := New(50)
		require.NoError(t, r.TrackPrompt("room-1", "prompt-1", time.Now()))
		require.NoError(t, r.Activate("room-1", "host-1", "prompt-1", time.Now()))

		err := r.WithRoom("room-1", func(rm *Room) error {
			assert.Equal(t, models.PhaseActive, rm.Phase())
			assert.Equal(t, models.HostOf("host-1"), rm.Host())
			assert.Equal(t, "prompt-1", rm.DisplayMessageID())
			assert.Empty(t, rm.PromptMessageID())
			assert.Zero(t, rm.Len())
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("without tracked prompt", func(t *testing.T) {
		r := New(50)
		require.NoError(t, r.Activate("room-1", "host-1", "display-1", time.Now()))
		assert.True(t, r.Has("room-1"))
	})

	t.Run("already active", func(t *testing.T) {
		r := activeRegistry(t, "room-1")
		assert.ErrorIs(t, r.Activate("room-1", "host-2", "display-2", time.Now()), errs.ErrQueueExists)
	})
}

func TestDiscard(t *testing.T) {
	r := New(50)
	require.NoError(t, r.TrackPrompt("room-1", "prompt-1", time.Now()))

	r.Discard("room-1")
	assert.False(t, r.Has("room-1"))

	// Active rooms survive a stray discard.
	require.NoError(t, r.Activate("room-2", "host-1", "display-1", time.Now()))
	r.Discard("room-2")
	assert.True(t, r.Has("room-2"))
}

func TestWithRoomUntracked(t *testing.T) {
	r := New(50)
	err := r.WithRoom("missing", func(rm *Room) error { return nil })
	assert.ErrorIs(t, err, errs.ErrNoQueue)
}

func TestJoin(t *testing.T) {
	t.Run("positions are one-indexed and ordered", func(t *testing.T) {
		r := activeRegistry(t, "room-1")
		err := r.WithRoom("room-1", func(rm *Room) error {
			pos, updated, err := rm.Join("user-1", "Tank", 10, time.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, pos)
			assert.False(t, updated)

			pos, updated, err = rm.Join("user-2", "Cleric", 20, time.Now())
			require.NoError(t, err)
			assert.Equal(t, 2, pos)
			assert.False(t, updated)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("rejoin updates in place and keeps rank", func(t *testing.T) {
		r := activeRegistry(t, "room-1")
		err := r.WithRoom("room-1", func(rm *Room) error {
			_, _, err := rm.Join("user-1", "Tank", 10, time.Now())
			require.NoError(t, err)
			_, _, err = rm.Join("user-2", "Cleric", 20, time.Now())
			require.NoError(t, err)

			pos, updated, err := rm.Join("user-1", "Mage", 55, time.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, pos)
			assert.True(t, updated)

			entries := rm.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, "user-1", entries[0].UserID)
			assert.Equal(t, "Mage", entries[0].Class)
			assert.Equal(t, 55, entries[0].Level)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("full queue rejects new members but allows updates", func(t *testing.T) {
		r := New(3)
		require.NoError(t, r.Activate("room-1", "host-1", "display-1", time.Now()))
		err := r.WithRoom("room-1", func(rm *Room) error {
			for i := 1; i <= 3; i++ {
				_, _, err := rm.Join(fmt.Sprintf("user-%d", i), "Tank", 10, time.Now())
				require.NoError(t, err)
			}

			_, _, err := rm.Join("user-4", "Cleric", 20, time.Now())
			assert.ErrorIs(t, err, errs.ErrQueueFull)

			pos, updated, err := rm.Join("user-2", "Rogue", 33, time.Now())
			require.NoError(t, err)
			assert.Equal(t, 2, pos)
			assert.True(t, updated)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestLeave(t *testing.T) {
	r := activeRegistry(t, "room-1")
	err := r.WithRoom("room-1", func(rm *Room) error {
		_, _, err := rm.Join("user-1", "Tank", 10, time.Now())
		require.NoError(t, err)
		_, _, err = rm.Join("user-2", "Cleric", 20, time.Now())
		require.NoError(t, err)
		_, _, err = rm.Join("user-3", "Mage", 30, time.Now())
		require.NoError(t, err)

		assert.True(t, rm.Leave("user-2"))

		// Everyone behind the removed entry moves up one rank.
		entries := rm.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "user-1", entries[0].UserID)
		assert.Equal(t, "user-3", entries[1].UserID)

		// Idempotent.
		assert.False(t, rm.Leave("user-2"))
		assert.False(t, rm.Leave("never-queued"))
		return nil
	})
	require.NoError(t, err)
}

func TestHead(t *testing.T) {
	r := activeRegistry(t, "room-1")
	err := r.WithRoom("room-1", func(rm *Room) error {
		_, ok := rm.Head()
		assert.False(t, ok)

		_, _, err := rm.Join("user-1", "Tank", 10, time.Now())
		require.NoError(t, err)
		head, ok := rm.Head()
		assert.True(t, ok)
		assert.Equal(t, "user-1", head.UserID)
		return nil
	})
	require.NoError(t, err)
}

func TestPurge(t *testing.T) {
	r := activeRegistry(t, "room-1")
	r.Purge("room-1")

	assert.False(t, r.Has("room-1"))
	assert.Empty(t, r.RoomIDs())
	assert.ErrorIs(t, r.WithRoom("room-1", func(rm *Room) error { return nil }), errs.ErrNoQueue)

	// Idempotent.
	r.Purge("room-1")
}

func TestSnapshot(t *testing.T) {
	r := activeRegistry(t, "room-1")
	err := r.WithRoom("room-1", func(rm *Room) error {
		_, _, err := rm.Join("user-1", "Tank", 10, time.Now())
		require.NoError(t, err)
		rm.SetConstraints(models.GroupConstraints{MinLevel: 20, Note: "bring potions"})
		return nil
	})
	require.NoError(t, err)

	snap, err := r.Snapshot("room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", snap.RoomID)
	assert.Equal(t, models.PhaseActive, snap.Phase)
	assert.Equal(t, models.HostOf("host-1"), snap.Host)
	assert.Equal(t, 20, snap.Constraints.MinLevel)
	require.Len(t, snap.Entries, 1)

	// The snapshot is a copy; later mutations must not leak into it.
	err = r.WithRoom("room-1", func(rm *Room) error {
		rm.Leave("user-1")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, snap.Entries, 1)
}

func TestAdMessages(t *testing.T) {
	r := activeRegistry(t, "room-1")
	require.NoError(t, r.Activate("room-2", "host-2", "display-2", time.Now()))

	require.NoError(t, r.WithRoom("room-1", func(rm *Room) error {
		rm.SetAdMessageIDs([]string{"ad-1"})
		return nil
	}))
	require.NoError(t, r.WithRoom("room-2", func(rm *Room) error {
		rm.SetAdMessageIDs([]string{"ad-2"})
		return nil
	}))

	index := r.AdMessages()
	assert.Equal(t, map[string]string{
		"ad-1": "room-1",
		"ad-2": "room-2",
	}, index)
}

func TestPurgeAndRecreateKeepLockExclusive(t *testing.T) {
	r := New(50)
	require.NoError(t, r.Activate("room-1", "host-1", "display-1", time.Now()))

	var (
		inside     atomic.Int32
		violations atomic.Int32
		wg         sync.WaitGroup
	)
	stop := make(chan struct{})

	// Mutators hammer the room through WithRoom. At most one of them may be
	// inside the critical section at any instant, purge/recreate churn or not.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = r.WithRoom("room-1", func(rm *Room) error {
					if inside.Add(1) != 1 {
						violations.Add(1)
					}
					_, _, _ = rm.Join(userID, "Tank", 10, time.Now())
					rm.Leave(userID)
					inside.Add(-1)
					return nil
				})
			}
		}(i)
	}

	// Churn the room's lifetime: each purge drops the lock mapping and each
	// activate mints a fresh mutex.
	for i := 0; i < 500; i++ {
		r.Purge("room-1")
		_ = r.Activate("room-1", "host-1", "display-1", time.Now())
	}

	close(stop)
	wg.Wait()

	assert.Zero(t, violations.Load(), "two goroutines held the room's critical section at once")
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const capacity = 50
	r := New(capacity)
	require.NoError(t, r.Activate("room-1", "host-1", "display-1", time.Now()))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < capacity*2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := r.WithRoom("room-1", func(rm *Room) error {
				_, _, err := rm.Join(fmt.Sprintf("user-%d", i), "Tank", 10, time.Now())
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
			} else {
				accepted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, accepted)
	assert.Equal(t, capacity, rejected)

	err := r.WithRoom("room-1", func(rm *Room) error {
		assert.Equal(t, capacity, rm.Len())
		return nil
	})
	require.NoError(t, err)
}
