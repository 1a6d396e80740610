package vesting

import "time"

// Clock supplies the current time. The engine reads it once per
// operation and works in Unix seconds from there on.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// UnixClock always returns the given Unix second.
func UnixClock(sec int64) Clock {
	return FixedClock(time.Unix(sec, 0).UTC())
}
