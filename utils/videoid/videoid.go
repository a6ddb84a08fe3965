package videoid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// New returns a vid_* ULID string.
func New() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return "vid_" + strings.ToLower(id.String())
}

// NewUserID returns a usr_* ULID string.
func NewUserID() string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return "usr_" + strings.ToLower(id.String())
}

// IsValid reports whether the string is a vid_* ULID.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, "vid_") {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the vid_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "vid_")
	value = strings.TrimPrefix(value, "VID_")
	return ulid.Parse(value)
}
