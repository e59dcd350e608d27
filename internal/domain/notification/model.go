// Package notification defines the notification model shared by the toast
// dispatcher and the persistent notification store.
package notification

import (
	"time"
	"unicode"
)

// Variant categorizes a notification and drives its styling and dismissal
// policy.
type Variant string

const (
	VariantInfo    Variant = "info"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// Valid reports whether v is one of the known variants.
func (v Variant) Valid() bool {
	switch v {
	case VariantInfo, VariantSuccess, VariantError:
		return true
	}
	return false
}

// DefaultTitle is the title used when the caller supplies none: the variant
// name with its first letter capitalized.
func (v Variant) DefaultTitle() string {
	runes := []rune(string(v))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Notification is a single notification payload. ID is caller-chosen and is
// the de-duplication/update key: at most one live notification exists per ID.
type Notification struct {
	ID        string   `json:"id"`
	Title     string   `json:"title,omitempty"`
	Message   []string `json:"message"`
	Variant   Variant  `json:"variant"`
	Loading   bool     `json:"loading,omitempty"`
	Progress  *int     `json:"progress,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// NeedsFutureUpdate reports whether the notification is still expected to
// change: it shows a loading state, or carries a progress value short of 100.
// Such entries must not be persisted yet.
func (n Notification) NeedsFutureUpdate() bool {
	return n.Loading || (n.Progress != nil && *n.Progress != 100)
}

// Terminal reports whether the notification has reached its final state and
// may be written to the persistent store.
func (n Notification) Terminal() bool {
	return !n.NeedsFutureUpdate()
}

// Clone returns a deep copy so callers cannot mutate stored entries.
func (n Notification) Clone() Notification {
	out := n
	if n.Message != nil {
		out.Message = append([]string(nil), n.Message...)
	}
	if n.Progress != nil {
		p := *n.Progress
		out.Progress = &p
	}
	return out
}

// ProgressOf is a convenience for building notifications with a progress bar.
func ProgressOf(p int) *int {
	return &p
}

// Now returns the current time as an epoch-millisecond timestamp, the unit
// Notification.Timestamp is expressed in.
func Now() int64 {
	return time.Now().UnixMilli()
}
