package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps at most one Session per user. Entries expire after the idle
// TTL; each Put refreshes the TTL.
type Store struct {
	cache *expirable.LRU[int64, Session]
	locks *KeyedMutex
}

// NewStore creates a store holding up to capacity sessions, each expiring
// after ttl without activity. A ttl of zero disables expiry.
func NewStore(capacity int, ttl time.Duration) *Store {
	return &Store{
		cache: expirable.NewLRU[int64, Session](capacity, nil, ttl),
		locks: NewKeyedMutex(),
	}
}

// Get returns the user's live session
func (s *Store) Get(userID int64) (Session, bool) {
	return s.cache.Get(userID)
}

// Put stores sess, replacing any previous session of the same user
func (s *Store) Put(sess Session) {
	s.cache.Add(sess.UserID, sess)
}

// Delete discards the user's session
func (s *Store) Delete(userID int64) {
	s.cache.Remove(userID)
}

// Len reports the number of stored sessions, including not yet evicted expired ones
func (s *Store) Len() int {
	return s.cache.Len()
}

// Lock serialises work on one user's session. Call the returned func to release.
func (s *Store) Lock(userID int64) func() {
	return s.locks.Lock(userID)
}

// KeyedMutex is a set of mutexes addressed by user id. Entries are dropped
// once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*keyedLock)}
}

// Lock acquires the mutex for key and returns its unlock func
func (k *KeyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
