package offchain_test

import (
	"math"
	"testing"
	"time"

	"github.com/stealthrocket/offcraft/internal/assert"
	"github.com/stealthrocket/offcraft/offchain"
)

func TestTimestampAdd(t *testing.T) {
	assert.Equal(t,
		offchain.Timestamp(5).Add(offchain.Duration(10)),
		offchain.Timestamp(15))

	// Addition saturates at the maximum representable timestamp
	// instead of wrapping.
	assert.Equal(t,
		offchain.MaxTimestamp.Add(offchain.Duration(1)),
		offchain.MaxTimestamp)
	assert.Equal(t,
		offchain.Timestamp(1).Add(offchain.Duration(math.MaxUint64)),
		offchain.MaxTimestamp)
}

func TestTimestampSub(t *testing.T) {
	assert.Equal(t,
		offchain.Timestamp(15).Sub(offchain.Duration(10)),
		offchain.Timestamp(5))

	// Subtraction saturates at zero instead of underflowing.
	assert.Equal(t,
		offchain.Timestamp(5).Sub(offchain.Duration(10)),
		offchain.Timestamp(0))
	assert.Equal(t,
		offchain.Timestamp(0).Sub(offchain.Duration(math.MaxUint64)),
		offchain.Timestamp(0))
}

func TestTimestampDiff(t *testing.T) {
	assert.Equal(t,
		offchain.Timestamp(5).Diff(offchain.Timestamp(3)),
		offchain.Duration(2))

	// A later timestamp yields a zero duration, never a negative one.
	assert.Equal(t,
		offchain.Timestamp(3).Diff(offchain.Timestamp(5)),
		offchain.Duration(0))
	assert.Equal(t,
		offchain.Timestamp(7).Diff(offchain.Timestamp(7)),
		offchain.Duration(0))
}

func TestTimestampArithmeticNeverOvershoots(t *testing.T) {
	timestamps := []offchain.Timestamp{
		0, 1, 5, 1000, math.MaxUint64 / 2, math.MaxUint64 - 1, math.MaxUint64,
	}
	durations := []offchain.Duration{
		0, 1, 10, 1 << 32, math.MaxUint64 / 2, math.MaxUint64,
	}
	for _, ts := range timestamps {
		for _, d := range durations {
			if sum := ts.Add(d); sum < ts {
				t.Errorf("%d.Add(%d) = %d went backwards", ts, d, sum)
			}
			if diff := ts.Sub(d); diff > ts {
				t.Errorf("%d.Sub(%d) = %d went forwards", ts, d, diff)
			}
		}
	}
}

func TestDurationMillisRoundTrip(t *testing.T) {
	for _, millis := range []uint64{0, 1, 999, 1 << 40, math.MaxUint64} {
		assert.Equal(t, offchain.DurationFromMillis(millis).Millis(), millis)
	}
}

func TestTimestampUnixMillisRoundTrip(t *testing.T) {
	for _, millis := range []uint64{0, 1, 1687000000000, math.MaxUint64} {
		assert.Equal(t, offchain.TimestampFromUnixMillis(millis).UnixMillis(), millis)
	}
}

func TestTimestampTimeConversion(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	assert.True(t, offchain.TimestampFromTime(now).Time().Equal(now))

	// Times before the epoch clamp to zero.
	assert.Equal(t,
		offchain.TimestampFromTime(time.UnixMilli(-1)),
		offchain.Timestamp(0))
}

func TestDurationStd(t *testing.T) {
	assert.Equal(t, offchain.DurationFromMillis(1500).Std(), 1500*time.Millisecond)

	// Conversions beyond the standard library's range clamp instead of
	// overflowing.
	assert.Equal(t, offchain.Duration(math.MaxUint64).Std(), time.Duration(math.MaxInt64))
}
