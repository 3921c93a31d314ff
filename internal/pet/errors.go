package pet

import "errors"

// Domain outcomes. These are ordinary return values: a failed bond or an
// out-of-season snack is a normal path, rendered to chat by the dispatcher,
// never an infrastructure failure.
var (
	ErrNoAttemptsLeft  = errors.New("no bonding attempts left")
	ErrMissingItem     = errors.New("required item not owned")
	ErrBondFailed      = errors.New("bond attempt failed")
	ErrNoItem          = errors.New("no such item")
	ErrOutOfSeason     = errors.New("item out of season")
	ErrNotEnoughPoints = errors.New("not enough points")
	ErrFreeFeedUsed    = errors.New("free feed already used")
	ErrAlreadyOwned    = errors.New("item already owned")
)

var domainErrs = []error{
	ErrNoAttemptsLeft,
	ErrMissingItem,
	ErrBondFailed,
	ErrNoItem,
	ErrOutOfSeason,
	ErrNotEnoughPoints,
	ErrFreeFeedUsed,
	ErrAlreadyOwned,
}

// IsDomainErr reports whether err is a user-facing game outcome rather than
// an infrastructure failure.
func IsDomainErr(err error) bool {
	for _, d := range domainErrs {
		if errors.Is(err, d) {
			return true
		}
	}
	return false
}
