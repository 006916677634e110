package sessionstore

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// IDPrefix starts every generated session id.
const IDPrefix = "session_"

// NewSessionID returns "session_" + a random UUID. When the system random
// source fails it falls back to a timestamp plus a pseudo-random suffix, which
// is unique enough for anonymous widget sessions but not globally.
func NewSessionID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackSessionID(time.Now())
	}
	return IDPrefix + id.String()
}

func fallbackSessionID(now time.Time) string {
	return IDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomBase36(9)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = base36[rand.IntN(len(base36))]
	}
	return string(buf)
}
