package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore()

	created := store.Create("Sprint 12", 30*time.Minute)
	require.NotEmpty(t, created.ID)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Sprint 12", got.Name)
	assert.Equal(t, 1, store.Count())
}

func TestStoreGetUnknown(t *testing.T) {
	store := NewStore()

	_, err := store.Get("nope1234")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreGetReturnsSnapshot(t *testing.T) {
	store := NewStore()
	created := store.Create("snap", time.Hour)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.AddParticipant(Participant{ID: "p1", Name: "alice"})

	fresh, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "snap", fresh.Name)
	assert.Empty(t, fresh.Participants, "mutating a snapshot must not touch the store")
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore()
	created := store.Create("before", time.Hour)

	created.SetTopic("API pagination")
	updated, err := store.Update(created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "API pagination", updated.CurrentTopic)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "API pagination", got.CurrentTopic)
}

func TestStoreUpdateNoUpsert(t *testing.T) {
	store := NewStore()
	sess := NewSession("orphan", time.Hour)

	_, err := store.Update(sess.ID, sess)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Count())
}

func TestStoreJoinAndLeave(t *testing.T) {
	store := NewStore()
	created := store.Create("join", time.Hour)

	p, err := store.Join(created.ID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	assert.Equal(t, "alice", p.Name)

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	require.Len(t, got.Participants, 1)
	assert.Equal(t, p, got.Participants[0])

	require.NoError(t, store.Leave(created.ID, p.ID))
	got, err = store.Get(created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
}

func TestStoreLeaveIsIdempotent(t *testing.T) {
	store := NewStore()
	created := store.Create("leave", time.Hour)

	require.NoError(t, store.Leave(created.ID, "never-joined"))
	require.NoError(t, store.Leave(created.ID, "never-joined"))
}

func TestStoreJoinUnknownSession(t *testing.T) {
	store := NewStore()

	_, err := store.Join("nope1234", "alice")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreEnd(t *testing.T) {
	store := NewStore()
	created := store.Create("end", time.Hour)

	require.NoError(t, store.End(created.ID))
	_, err := store.Get(created.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.End(created.ID), ErrSessionNotFound)
}

func TestStoreList(t *testing.T) {
	store := NewStore()
	want := map[string]bool{}
	for i := 0; i < 10; i++ {
		s := store.Create(fmt.Sprintf("session-%d", i), time.Hour)
		want[s.ID] = true
	}

	list := store.List()
	require.Len(t, list, 10)
	for _, s := range list {
		assert.True(t, want[s.ID], "unexpected session %s", s.ID)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	created := store.Create("concurrent", time.Hour)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			p, err := store.Join(created.ID, fmt.Sprintf("user%d", i))
			if err != nil {
				t.Error(err)
				return
			}
			sess, err := store.Get(created.ID)
			if err != nil {
				t.Error(err)
				return
			}
			pts := i
			if err := sess.Point(p.ID, &pts); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	got, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, workers)
}

func TestStoreConcurrentCreate(t *testing.T) {
	store := NewStore()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			store.Create(fmt.Sprintf("s%d", i), time.Hour)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, store.Count())
}
