package service

import "github.com/dimasromerop/portal-giav/db/models"

var intentTransitions = map[models.IntentStatus][]models.IntentStatus{
	models.IntentStatusCreated: {
		models.IntentStatusRedirecting,
		models.IntentStatusReturnedOK,
		models.IntentStatusReturnedKO,
		models.IntentStatusNotifiedOK,
		models.IntentStatusNotifiedKO,
		models.IntentStatusNotifiedBadSig,
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	models.IntentStatusRedirecting: {
		models.IntentStatusReturnedOK,
		models.IntentStatusReturnedKO,
		models.IntentStatusNotifiedOK,
		models.IntentStatusNotifiedKO,
		models.IntentStatusNotifiedBadSig,
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	// the server notify is authoritative over the browser return
	models.IntentStatusReturnedOK: {
		models.IntentStatusNotifiedOK,
		models.IntentStatusNotifiedKO,
		models.IntentStatusNotifiedBadSig,
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	models.IntentStatusReturnedKO: {
		models.IntentStatusNotifiedOK,
		models.IntentStatusNotifiedKO,
		models.IntentStatusNotifiedBadSig,
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	models.IntentStatusNotifiedOK: {
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	models.IntentStatusNotifiedKO: {
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	// a later valid redelivery wins over a bad signature
	models.IntentStatusNotifiedBadSig: {
		models.IntentStatusNotifiedOK,
		models.IntentStatusNotifiedKO,
		models.IntentStatusReconciled,
		models.IntentStatusFailed,
	},
	models.IntentStatusReconciled: {},
	models.IntentStatusFailed:     {},
}

// CanTransition reports whether an intent in status from may move to status
// to. Writing the current status again is always accepted, except that it
// changes nothing.
func CanTransition(from, to models.IntentStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range intentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
