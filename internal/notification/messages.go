package notification

import (
	"fmt"

	"clinic-scheduler-backend/internal/booking"
	"clinic-scheduler-backend/internal/model"
)

func (wp *WorkerPool) confirmation(b booking.Booking) Message {
	return Message{
		Subject: "Appointment Confirmed",
		Body: fmt.Sprintf("Your appointment %s with %s is confirmed for %s.",
			b.ID, b.ResourceID, b.Start.In(wp.loc).Format("Monday, January 02 at 03:04 PM")),
	}
}

func (wp *WorkerPool) intakeForm(b booking.Booking) Message {
	body := fmt.Sprintf("Thank you for booking your appointment (ID: %s).\n\n"+
		"Please complete the New Patient Intake Form and bring it with you to your appointment.", b.ID)
	if wp.intakeURL != "" {
		body += "\n\nThe form is available at " + wp.intakeURL
	}
	return Message{
		Subject: "Your New Patient Intake Form",
		Body:    body + "\n\nWe look forward to seeing you.\nThe Clinic",
	}
}

// planReminders builds one reminder per configured offset that is still in
// the future. The closest reminder asks for confirmation. A first visit is
// asked about the intake form by the one before it.
func (wp *WorkerPool) planReminders(b booking.Booking, patientID int64, firstVisit bool) []model.Reminder {
	now := wp.now()
	local := b.Start.In(wp.loc)

	var reminders []model.Reminder
	for i, offset := range wp.offsets {
		due := b.Start.Add(-offset)
		if !due.After(now) {
			continue
		}

		var subject, message string
		switch {
		case i == len(wp.offsets)-1 && len(wp.offsets) > 1:
			subject = "Action Required: Confirm Your Appointment"
			message = fmt.Sprintf("Final reminder for appointment %s at %s. Please reply to confirm your attendance. "+
				"If you need to cancel, please let us know the reason.", b.ID, local.Format("03:04 PM"))
		case i == len(wp.offsets)-2 && firstVisit:
			subject = "Action Required: Intake Form"
			message = fmt.Sprintf("Reminder for appointment %s: have you completed your new patient intake form? "+
				"If not, please let us know if you need assistance.", b.ID)
		default:
			subject = "Appointment Reminder"
			message = fmt.Sprintf("Reminder: your appointment %s is scheduled for %s.", b.ID, local.Format("Monday, January 02 at 03:04 PM"))
		}

		reminders = append(reminders, model.Reminder{
			BookingID:     b.ID,
			ResourceID:    b.ResourceID,
			AppointmentAt: b.Start,
			PatientID:     patientID,
			Subject:       subject,
			Message:       message,
			DueAt:         due.UTC(),
		})
	}
	return reminders
}

// ReminderMessage turns a stored reminder back into a Message.
func ReminderMessage(r model.Reminder) Message {
	return Message{Subject: r.Subject, Body: r.Message}
}
