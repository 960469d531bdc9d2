package offchain

import (
	"math"
	"time"
)

// Timestamp is an opaque point in time expressed as a number of
// milliseconds since the UNIX epoch.
//
// All arithmetic on Timestamp saturates instead of wrapping; deadline
// math computed from adversarial inputs clamps to the representable
// range and never produces an invalid time.
type Timestamp uint64

// Duration is a span of time expressed in milliseconds. Durations are
// unsigned and only ever offset a Timestamp.
type Duration uint64

// MaxTimestamp is the latest representable point in time.
const MaxTimestamp = Timestamp(math.MaxUint64)

// TimestampFromUnixMillis constructs a Timestamp from a raw number of
// milliseconds since the UNIX epoch.
func TimestampFromUnixMillis(millis uint64) Timestamp {
	return Timestamp(millis)
}

// TimestampFromTime converts a time.Time to a Timestamp, clamping
// times before the epoch to zero.
func TimestampFromTime(t time.Time) Timestamp {
	millis := t.UnixMilli()
	if millis < 0 {
		return 0
	}
	return Timestamp(millis)
}

// UnixMillis returns the number of milliseconds since the UNIX epoch.
func (t Timestamp) UnixMillis() uint64 {
	return uint64(t)
}

// Time converts the Timestamp to a time.Time, clamping values beyond
// the range representable by the standard library.
func (t Timestamp) Time() time.Time {
	if t > Timestamp(math.MaxInt64) {
		return time.UnixMilli(math.MaxInt64)
	}
	return time.UnixMilli(int64(t))
}

// Add increases the timestamp by d, saturating at MaxTimestamp.
func (t Timestamp) Add(d Duration) Timestamp {
	s := t + Timestamp(d)
	if s < t {
		return MaxTimestamp
	}
	return s
}

// Sub decreases the timestamp by d, saturating at zero.
func (t Timestamp) Sub(d Duration) Timestamp {
	if Timestamp(d) > t {
		return 0
	}
	return t - Timestamp(d)
}

// Diff returns the elapsed span between t and an earlier timestamp;
// if other is later than t the result is zero.
func (t Timestamp) Diff(other Timestamp) Duration {
	if other > t {
		return 0
	}
	return Duration(t - other)
}

// DurationFromMillis constructs a Duration from a raw millisecond
// count. The conversion is lossless: d.Millis() returns the same
// value.
func DurationFromMillis(millis uint64) Duration {
	return Duration(millis)
}

// Millis returns the number of milliseconds the Duration represents.
func (d Duration) Millis() uint64 {
	return uint64(d)
}

// Std converts the Duration to a time.Duration, clamping values beyond
// the range representable by the standard library.
func (d Duration) Std() time.Duration {
	if d > Duration(math.MaxInt64/int64(time.Millisecond)) {
		return math.MaxInt64
	}
	return time.Duration(d) * time.Millisecond
}
