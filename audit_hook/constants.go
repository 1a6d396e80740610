package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionVestingAccountCreated  = "vesting_account.created"
	ActionEmployeeVestingCreated = "employee_vesting.created"
	ActionTreasuryFunded         = "treasury.funded"

	// Claim actions
	ActionClaimSettled   = "claim.settled"
	ActionClaimRejected  = "claim.rejected"
	ActionClaimReverted  = "claim.reverted"
	ActionClaimRecovered = "claim.recovered"
)

// Resource constants for audit events.
const (
	ResourceVestingAccount = "vesting_account"
	ResourceEmployee       = "employee_account"
	ResourceTreasury       = "treasury"
	ResourceClaim          = "claim"
)

// Category constants for audit events.
const (
	CategoryAccount  = "account"
	CategoryTreasury = "treasury"
	CategoryClaim    = "claim"
	CategoryAccess   = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
