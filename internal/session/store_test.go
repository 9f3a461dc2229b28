package session

import (
	"sync"
	"testing"
	"time"

	"signal_kz/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_SubmissionSteps(t *testing.T) {
	now := time.Now()
	s := NewSubmission(5, now)
	assert.Equal(t, StateAwaitingCategory, s.State)

	s = s.WithCategory("Пожар", now)
	assert.Equal(t, StateAwaitingDescription, s.State)
	s = s.WithDescription("дым над лесом", now)
	assert.Equal(t, StateAwaitingLocation, s.State)
	s = s.WithLocation(model.Location{Latitude: 43.2, Longitude: 76.9}, now)
	assert.Equal(t, StateAwaitingPhoto, s.State)
	s = s.WithPhoto("ref123", now)
	assert.Equal(t, StateAwaitingConfirmation, s.State)

	d := s.Draft()
	assert.Equal(t, model.Draft{
		AuthorID:    5,
		Category:    "Пожар",
		Description: "дым над лесом",
		Location:    model.Location{Latitude: 43.2, Longitude: 76.9},
		PhotoRef:    "ref123",
	}, d)
}

func TestStore_PutReplacesPreviousSession(t *testing.T) {
	store := NewStore(10, time.Minute)
	now := time.Now()

	first := NewSubmission(1, now).WithCategory("Пожар", now).WithDescription("old", now)
	store.Put(first)
	store.Put(NewSubmission(1, now))

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, StateAwaitingCategory, got.State)
	assert.Empty(t, got.Category)
	assert.Empty(t, got.Description)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ValuesAreCopies(t *testing.T) {
	store := NewStore(10, time.Minute)
	store.Put(NewSubmission(1, time.Now()))

	got, _ := store.Get(1)
	got.Category = "mutated"

	again, _ := store.Get(1)
	assert.Empty(t, again.Category)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(10, time.Minute)
	store.Put(NewSubmission(1, time.Now()))
	store.Delete(1)

	_, ok := store.Get(1)
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	store := NewStore(10, 50*time.Millisecond)
	store.Put(NewSubmission(1, time.Now()))

	time.Sleep(120 * time.Millisecond)

	_, ok := store.Get(1)
	assert.False(t, ok)
}

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock(7)
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, km.locks)
}
