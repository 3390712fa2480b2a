package ledger

import (
	"fmt"
	"time"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
)

const clockLayout = "15:04"

type interval struct {
	id, code   string
	start, end time.Time
}

// CheckScheduleConflicts reports the first pair of active registrations whose
// slots overlap on the same day. Dropped registrations are ignored and
// back-to-back slots do not conflict.
func CheckScheduleConflicts(subjects []models.SubjectRegistration) error {
	byDay := make(map[string][]interval)
	for _, subject := range subjects {
		if subject.Status == models.SubjectStatusDropped {
			continue
		}
		for _, slot := range subject.Schedule {
			start, err := time.Parse(clockLayout, slot.StartTime)
			if err != nil {
				return fmt.Errorf("%w: %s start time %q", ErrInvalidSlot, subject.SubjectCode, slot.StartTime)
			}
			end, err := time.Parse(clockLayout, slot.EndTime)
			if err != nil {
				return fmt.Errorf("%w: %s end time %q", ErrInvalidSlot, subject.SubjectCode, slot.EndTime)
			}
			if !end.After(start) {
				return fmt.Errorf("%w: %s slot on %s ends before it starts", ErrInvalidSlot, subject.SubjectCode, slot.Day)
			}
			current := interval{id: subject.SubjectID, code: subject.SubjectCode, start: start, end: end}
			for _, other := range byDay[slot.Day] {
				if other.id != current.id && current.start.Before(other.end) && other.start.Before(current.end) {
					return fmt.Errorf("%w: %s and %s on %s", ErrScheduleConflict, other.code, current.code, slot.Day)
				}
			}
			byDay[slot.Day] = append(byDay[slot.Day], current)
		}
	}
	return nil
}
