package service

import (
	"sync"

	"github.com/google/uuid"
)

// StudentLocker serializes payment transactions per student. Transactions for different
// students never contend.
type StudentLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*studentLock
}

type studentLock struct {
	mu   sync.Mutex
	refs int
}

// NewStudentLocker creates an empty StudentLocker
func NewStudentLocker() *StudentLocker {
	return &StudentLocker{locks: make(map[uuid.UUID]*studentLock)}
}

// Lock blocks until the student's lock is held and returns the matching unlock function
func (l *StudentLocker) Lock(studentID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[studentID]
	if !ok {
		entry = &studentLock{}
		l.locks[studentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, studentID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of students with a held or awaited lock
func (l *StudentLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
