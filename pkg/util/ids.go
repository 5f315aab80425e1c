package util

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prefixes used for generated identifiers
const (
	PrefixCourse    = "course"
	PrefixStep      = "step"
	PrefixBlock     = "block"
	PrefixUser      = "user"
	PrefixGenerated = "generated"
)

// NewID returns "<prefix>-<uuid>"
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}

// IDFunc produces a fresh identifier each call
type IDFunc func() string

// Prefixed returns an IDFunc bound to a prefix
func Prefixed(prefix string) IDFunc {
	return func() string { return NewID(prefix) }
}

// Sequence returns an IDFunc yielding "<prefix>-1", "<prefix>-2", ... for deterministic tests
func Sequence(prefix string) IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// GeneratedStepID matches the ids given to AI generated steps
func GeneratedStepID(now time.Time, index int) string {
	return fmt.Sprintf("%s-%d-%d", PrefixGenerated, now.UnixMilli(), index)
}
