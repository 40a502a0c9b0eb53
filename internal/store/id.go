package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	PrefixSession = "ses_"
	PrefixEscrow  = "esc_"
	PrefixQueue   = "que_"
	PrefixMatch   = "pvp_"
)

var (
	ulidEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	ulidEntropyMu sync.Mutex
)

// NewID returns a monotonic ULID. IDs created by one process sort in
// creation order, which the queue relies on as a joined_at tie-break.
func NewID() string {
	ulidEntropyMu.Lock()
	defer ulidEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

func NewPrefixedID(prefix string) string {
	return prefix + NewID()
}
