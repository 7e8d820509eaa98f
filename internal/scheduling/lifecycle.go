package scheduling

import "github.com/noah-isme/mentor-scheduling-api/internal/models"

var transitions = map[models.MeetingStatus][]models.MeetingStatus{
	models.MeetingStatusScheduled: {
		models.MeetingStatusConfirmed,
		models.MeetingStatusCancelled,
		models.MeetingStatusRescheduled,
	},
	models.MeetingStatusConfirmed: {
		models.MeetingStatusCompleted,
		models.MeetingStatusCancelled,
		models.MeetingStatusRescheduled,
	},
}

// CanTransition reports whether a meeting may move from one status to the
// next. Staying in the same status is always allowed.
func CanTransition(from, to models.MeetingStatus) bool {
	if from == to {
		return to.Valid()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves status.
func Terminal(status models.MeetingStatus) bool {
	return len(transitions[status]) == 0
}
