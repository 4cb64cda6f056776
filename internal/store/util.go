package store

import (
	"time"

	"github.com/google/uuid"
)

func timeNow() time.Time {
	return time.Now().UTC()
}

// rollbackID gives each rollback-point snapshot a unique suffix so two
// restores of the same parent never collide on id.
func rollbackID() string {
	return uuid.NewString()[:8]
}
