// Package scheduling holds the pure rules of mentor/student scheduling:
// interval collision, weekday projection, the meeting state machine and the
// reminder policy. Nothing here touches storage.
package scheduling

import (
	"time"

	"github.com/noah-isme/mentor-scheduling-api/internal/models"
)

// Overlaps is the half-open interval test shared by every collision check.
// Touching edges ([10:00,11:00) and [11:00,12:00)) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Collisions returns the active meetings that overlap [start, end). The
// meeting with id excludeID is skipped so an update never collides with itself.
func Collisions(start, end time.Time, meetings []models.Meeting, excludeID string) []models.Meeting {
	var hits []models.Meeting
	for _, m := range meetings {
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		if !m.Status.Active() {
			continue
		}
		if Overlaps(start, end, m.StartTime, m.EndTime) {
			hits = append(hits, m)
		}
	}
	return hits
}

// HasCollision reports whether any active meeting overlaps [start, end).
func HasCollision(start, end time.Time, meetings []models.Meeting, excludeID string) bool {
	return len(Collisions(start, end, meetings, excludeID)) > 0
}
