package schedule

// State is the derived lifecycle state of an employee account. It is
// never stored.
//
//	withdrawn >= total         FullyWithdrawn (overrides everything)
//	now <  start               NotStarted
//	start <= now < cliff       CliffPeriod
//	cliff <= now < end         VestingInProgress
//	now >= end                 FullyVested
type State string

const (
	StateNotStarted        State = "not_started"
	StateCliffPeriod       State = "cliff_period"
	StateVestingInProgress State = "vesting_in_progress"
	StateFullyVested       State = "fully_vested"
	StateFullyWithdrawn    State = "fully_withdrawn"
)

// Tone is the severity a presentation layer should use for a state badge.
type Tone string

const (
	ToneWarning Tone = "warning"
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneNeutral Tone = "neutral"
)

// Label returns the human-readable status label.
func (s State) Label() string {
	switch s {
	case StateNotStarted:
		return "Not Started"
	case StateCliffPeriod:
		return "Cliff Period"
	case StateVestingInProgress:
		return "Vesting in Progress"
	case StateFullyVested:
		return "Fully Vested"
	case StateFullyWithdrawn:
		return "Fully Withdrawn"
	default:
		return "Unknown"
	}
}

// Tone returns the badge tone for the state.
func (s State) Tone() Tone {
	switch s {
	case StateNotStarted, StateCliffPeriod:
		return ToneWarning
	case StateVestingInProgress:
		return ToneInfo
	case StateFullyVested:
		return ToneSuccess
	default:
		return ToneNeutral
	}
}

// AllowsClaim reports whether a claim may succeed in this state. A state
// that allows claims can still have nothing claimable after a claim in
// the same second.
func (s State) AllowsClaim() bool {
	return s == StateVestingInProgress || s == StateFullyVested
}
