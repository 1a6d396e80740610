// Package schedule implements linear vesting with a cliff.
//
// Everything here is a pure function of a Schedule, the amount already
// withdrawn and the current Unix time in seconds. The engine's claim path
// and every read-side status view go through the same functions, so a
// status shown to a user always agrees with what a claim would pay.
package schedule

import (
	"errors"
	"fmt"
	"math/bits"
)

// Schedule is the immutable vesting grant of one employee account.
type Schedule struct {
	StartTime   int64 `json:"start_time"`
	CliffTime   int64 `json:"cliff_time"`
	EndTime     int64 `json:"end_time"`
	TotalAmount int64 `json:"total_amount"`
}

// Validate checks StartTime <= CliffTime <= EndTime and TotalAmount > 0.
func (s Schedule) Validate() error {
	var errs []error
	if s.StartTime > s.CliffTime {
		errs = append(errs, fmt.Errorf("start_time %d is after cliff_time %d", s.StartTime, s.CliffTime))
	}
	if s.CliffTime > s.EndTime {
		errs = append(errs, fmt.Errorf("cliff_time %d is after end_time %d", s.CliffTime, s.EndTime))
	}
	if s.TotalAmount <= 0 {
		errs = append(errs, fmt.Errorf("total_amount %d must be positive", s.TotalAmount))
	}
	return errors.Join(errs...)
}

// VestedAmount returns how much of TotalAmount has vested at now.
//
// Nothing vests before the cliff. From the cliff until EndTime the amount
// grows linearly from StartTime, rounded down. At and after EndTime the
// whole grant is vested, which also covers StartTime == EndTime.
func (s Schedule) VestedAmount(now int64) int64 {
	switch {
	case s.TotalAmount <= 0:
		return 0
	case now >= s.EndTime:
		return s.TotalAmount
	case now < s.CliffTime:
		return 0
	}

	// StartTime <= CliffTime <= now < EndTime, so 0 <= elapsed < duration.
	elapsed := uint64(now - s.StartTime)
	duration := uint64(s.EndTime - s.StartTime)

	hi, lo := bits.Mul64(uint64(s.TotalAmount), elapsed)
	// hi < duration holds because the quotient is below TotalAmount.
	q, _ := bits.Div64(hi, lo, duration)
	return int64(q)
}

// Claimable returns VestedAmount(now) - withdrawn, floored at zero.
func (s Schedule) Claimable(withdrawn, now int64) int64 {
	c := s.VestedAmount(now) - withdrawn
	if c < 0 {
		return 0
	}
	return c
}

// State derives the lifecycle state at now. See State for the table.
func (s Schedule) State(withdrawn, now int64) State {
	switch {
	case withdrawn >= s.TotalAmount:
		return StateFullyWithdrawn
	case now < s.StartTime:
		return StateNotStarted
	case now < s.CliffTime:
		return StateCliffPeriod
	case now < s.EndTime:
		return StateVestingInProgress
	default:
		return StateFullyVested
	}
}
