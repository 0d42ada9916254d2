package central

import (
	"strings"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
	"github.com/vitalink-protocol/vitalink-go/pkg/session"
)

// Quirk policy defaults.
const (
	// DefaultQuirkVendorPrefix marks devices of the vendor whose clock
	// handling deviates from the profile: they reject the write issued
	// during session initialization and instead need a delayed
	// correction driven by their own clock notifications.
	DefaultQuirkVendorPrefix = "TMB"

	// DefaultClockDriftThreshold is the minimum divergence between
	// device time and local time before a correction is written.
	DefaultClockDriftThreshold = 10 * time.Minute
)

// QuirkPolicy isolates all device-name-based conditional behavior so it
// never leaks into the generic dispatch path. Name-prefix matching is
// fragile identification; keeping it here means an alternate strategy
// can replace it without touching the dispatcher.
type QuirkPolicy struct {
	vendorPrefix   string
	driftThreshold time.Duration

	// now is the local clock source, replaceable in tests.
	now func() time.Time
}

// NewQuirkPolicy returns a policy with the default vendor prefix and
// drift threshold.
func NewQuirkPolicy() *QuirkPolicy {
	return NewQuirkPolicyWith(DefaultQuirkVendorPrefix, DefaultClockDriftThreshold)
}

// NewQuirkPolicyWith returns a policy with a custom vendor prefix and
// drift threshold.
func NewQuirkPolicyWith(vendorPrefix string, driftThreshold time.Duration) *QuirkPolicy {
	if vendorPrefix == "" {
		vendorPrefix = DefaultQuirkVendorPrefix
	}
	if driftThreshold <= 0 {
		driftThreshold = DefaultClockDriftThreshold
	}
	return &QuirkPolicy{
		vendorPrefix:   vendorPrefix,
		driftThreshold: driftThreshold,
		now:            time.Now,
	}
}

// matches reports whether a device name belongs to the quirky vendor.
func (q *QuirkPolicy) matches(deviceName string) bool {
	return strings.HasPrefix(deviceName, q.vendorPrefix)
}

// ShouldWriteDefaultClock reports whether the initializer may perform
// the default clock write for a device. False for the quirky vendor,
// whose devices reject it.
func (q *QuirkPolicy) ShouldWriteDefaultClock(deviceName string) bool {
	return !q.matches(deviceName)
}

// OnClockUpdate evaluates a decoded clock notification for the delayed
// correction. It applies only to the quirky vendor, and only while the
// device is notifying blood pressure measurements. The correction is
// one-shot per session: it fires on the first such update, and only
// when the device clock has drifted beyond the threshold. The returned
// payload, when ok is true, must be written back to the clock channel.
func (q *QuirkPolicy) OnClockUpdate(sess *session.Session, deviceName string, deviceTime time.Time, bpNotifying bool) (payload []byte, ok bool) {
	if !q.matches(deviceName) {
		return nil, false
	}
	if !bpNotifying {
		return nil, false
	}

	attempts := sess.IncClockSyncAttempts()
	if attempts != 1 {
		return nil, false
	}

	localTime := q.now()
	drift := localTime.Sub(deviceTime)
	if drift < 0 {
		drift = -drift
	}
	if drift <= q.driftThreshold {
		return nil, false
	}

	return decode.EncodeDateTime(localTime), true
}
