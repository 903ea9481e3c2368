package service

import (
	"sync"

	"github.com/spec-kit/solicitudes-service/internal/domain"
)

// Identity is the acting principal; services stamp it onto audit fields and
// check its Role against the approver required for each transition.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  domain.Role
}

// ticketLocks serializes mutations per ticket key. Guard checks are
// read-then-write; without this two approvers acting on the same ticket could
// both pass the guard. The CAS version column catches cross-process races.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock function.
func (l *ticketLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
