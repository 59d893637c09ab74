// Package lock provides per-account locking for concurrent balance operations.
// It is an in-process guard in front of the database row locks, so requests
// from the same process queue here instead of inside PostgreSQL.
package lock

import "sync"

// accountMutex wraps a mutex with the number of goroutines holding or
// waiting for it. The entry is evicted when the count drops to zero.
type accountMutex struct {
	mu       sync.Mutex
	refCount int
}

// AccountLock provides per-account locking to prevent race conditions
// during balance operations.
type AccountLock struct {
	mu    sync.Mutex
	locks map[string]*accountMutex
}

// NewAccountLock creates a new AccountLock instance.
func NewAccountLock() *AccountLock {
	return &AccountLock{locks: make(map[string]*accountMutex)}
}

// acquire returns the account's mutex with its reference taken.
func (al *AccountLock) acquire(accountID string) *accountMutex {
	al.mu.Lock()
	defer al.mu.Unlock()

	lock, ok := al.locks[accountID]
	if !ok {
		lock = &accountMutex{}
		al.locks[accountID] = lock
	}
	lock.refCount++
	return lock
}

// release drops one reference and evicts the entry when none remain.
func (al *AccountLock) release(accountID string) *accountMutex {
	al.mu.Lock()
	defer al.mu.Unlock()

	lock, ok := al.locks[accountID]
	if !ok {
		return nil
	}
	lock.refCount--
	if lock.refCount == 0 {
		delete(al.locks, accountID)
	}
	return lock
}

// Lock acquires the lock for an account.
func (al *AccountLock) Lock(accountID string) {
	al.acquire(accountID).mu.Lock()
}

// Unlock releases the lock for an account.
func (al *AccountLock) Unlock(accountID string) {
	if lock := al.release(accountID); lock != nil {
		lock.mu.Unlock()
	}
}

// LockPair acquires the locks of two accounts in ascending ID order so that
// two opposite transfers can never deadlock. Locking the same ID twice takes
// a single lock. The returned function releases what was acquired.
func (al *AccountLock) LockPair(a, b string) (unlock func()) {
	if a == b {
		al.Lock(a)
		return func() { al.Unlock(a) }
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	al.Lock(first)
	al.Lock(second)
	return func() {
		al.Unlock(second)
		al.Unlock(first)
	}
}

// size returns the number of tracked accounts.
func (al *AccountLock) size() int {
	al.mu.Lock()
	defer al.mu.Unlock()
	return len(al.locks)
}
