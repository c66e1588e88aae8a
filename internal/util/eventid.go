package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewEventID generates an event identifier in the form
// "<ms-since-epoch-hex>-<random32-bit-hex>", matching the original
// detection service's generateEventId() so event IDs sort roughly by time
// while staying collision-resistant across concurrent cameras.
func NewEventID(now time.Time) string {
	ms := now.UnixMilli()
	var r [4]byte
	_, _ = rand.Read(r[:])
	return fmt.Sprintf("%x-%s", ms, hex.EncodeToString(r[:]))
}
