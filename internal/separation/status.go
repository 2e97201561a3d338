package separation

import "romaneio-backend/internal/models"

// Derive maps (requested, picked) to a status. Pure function of its inputs:
// replaying it over persisted fields yields the same answer no matter how many
// processing passes produced them. An operator override wins when it is one of
// the manual terminal states; anything else supplied as override is ignored.
func Derive(requested, picked int, override models.Status) models.Status {
	if models.IsManualOverride(override) {
		return override
	}
	switch {
	case picked == 0:
		return models.StatusOpen
	case picked < requested:
		return models.StatusPartial
	case picked == requested:
		return models.StatusFulfilled
	default:
		return models.StatusExcess
	}
}

// RemainingBalance is requested minus picked, floored at zero.
func RemainingBalance(requested, picked int) int {
	if balance := requested - picked; balance > 0 {
		return balance
	}
	return 0
}
