package models

// Status of a request row in the store. Open/Partial/Fulfilled/Excess are
// derived from quantities; InSeparation only exists between run creation and
// the first processing pass; Finalized and Missing are set manually by an
// operator and are terminal.
type Status string

const (
	StatusOpen         Status = "Open"
	StatusInSeparation Status = "In Separation"
	StatusPartial      Status = "Partial"
	StatusFulfilled    Status = "Fulfilled"
	StatusExcess       Status = "Excess"
	StatusFinalized    Status = "Finalized"
	StatusMissing      Status = "Missing"
)

// IsManualOverride reports whether s may be supplied by an operator to
// override the derived status.
func IsManualOverride(s Status) bool {
	return s == StatusFinalized || s == StatusMissing
}

// IsTerminal reports whether a request in this status can no longer be
// included in a new print run.
func IsTerminal(s Status) bool {
	switch s {
	case StatusFulfilled, StatusExcess, StatusFinalized, StatusMissing:
		return true
	}
	return false
}

type RunStatus string

const (
	RunStatusPending   RunStatus = "Pending"
	RunStatusProcessed RunStatus = "Processed"
)
