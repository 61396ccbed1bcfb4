package idgen

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/viant/procflow/internal/clock"
)

// NewFunc returns a new globally unique identifier as string.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new instance identifier.
func New() string { return NewFunc() }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULIDFunc returns a new time-sortable identifier.
var NewULIDFunc = func() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(clock.Now()), entropy).String()
}

// NewULID returns a 26-character, time-sortable identifier.
func NewULID() string { return NewULIDFunc() }
