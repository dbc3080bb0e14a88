package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"ntraining/backend/internal/model"
)

// ── Deadline calendar ─────────────────────────────────────────
//
// Renders a learner's mandatory course deadlines as an iCalendar (RFC 5545)
// feed so they can subscribe from any calendar client.
//   - one VEVENT per mandatory active enrollment with a deadline
//   - the event is the hour ending at the deadline
//   - a display alarm fires one day before
// ─────────────────────────────────────────────────────────────

const calendarProductID = "-//ntraining//mandatory-deadlines//EN"

// BuildDeadlineCalendar serializes the enrollments' deadlines. Enrollments
// without a deadline are skipped.
func BuildDeadlineCalendar(enrollments []model.Enrollment, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	for i := range enrollments {
		e := &enrollments[i]
		if e.Deadline == nil {
			continue
		}
		deadline := e.Deadline.UTC()

		title := e.CourseID
		if e.Course != nil && e.Course.Title != "" {
			title = e.Course.Title
		}

		event := cal.AddEvent(fmt.Sprintf("%s@ntraining", e.EnrollmentID))
		event.SetDtStampTime(now)
		event.SetCreatedTime(e.CreatedAt)
		event.SetStartAt(deadline.Add(-time.Hour))
		event.SetEndAt(deadline)
		event.SetSummary(fmt.Sprintf("Deadline: %s", title))
		event.SetDescription(fmt.Sprintf("Mandatory course %q must be completed by %s.", title, deadline.Format(time.RFC1123)))

		alarm := event.AddAlarm()
		alarm.SetAction(ics.ActionDisplay)
		alarm.SetTrigger("-P1D")
	}

	return []byte(cal.Serialize())
}
