package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns a millisecond-based identifier that is strictly greater than
// any identifier previously returned by this process.
func NewID() int64 {
	idMu.Lock()
	defer idMu.Unlock()

	id := time.Now().UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}

// NewPendingID creates an identifier for a pending bookmark handoff.
func NewPendingID() string {
	return uuid.New().String()
}
