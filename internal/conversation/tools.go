package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tecmax-dev/sisvida-sub005/internal/appointments"
	"github.com/tecmax-dev/sisvida-sub005/internal/patients"
	"github.com/tecmax-dev/sisvida-sub005/internal/professionals"
	"github.com/tecmax-dev/sisvida-sub005/internal/schedule"
)

const (
	toolListProfessionals       = "list_professionals"
	toolListOpenDates           = "list_open_dates"
	toolListOpenTimes           = "list_open_times"
	toolFindPatient             = "find_patient"
	toolCreateAppointment       = "create_appointment"
	toolListPatientAppointments = "list_patient_appointments"
	toolCancelAppointment       = "cancel_appointment"
	toolHandoffToBooking        = "handoff_to_booking"
)

const toolDateLayout = "2006-01-02"

// session carries per-request conversation state across tool executions:
// which member find_patient resolved, whether a handoff was requested, and
// the last mutation performed.
type session struct {
	clinicID uuid.UUID
	now      time.Time
	member   *patients.Member
	handoff  bool
	action   string
}

// envelope is the flat JSON object every tool returns to the model. Success
// and failure share the shape so the model never has to branch on structure.
type envelope map[string]any

func ok(message string, extra envelope) envelope {
	e := envelope{"success": true, "message": message}
	for k, v := range extra {
		e[k] = v
	}
	return e
}

func fail(message string) envelope {
	return envelope{"success": false, "message": message}
}

// Typed argument structs, one per tool. Arguments arrive as the model's JSON
// and are decoded into these before any handler runs; malformed payloads
// never reach domain code.
type listProfessionalsArgs struct {
	Specialty string `json:"specialty,omitempty"`
}

type listOpenDatesArgs struct {
	Professional string `json:"professional"`
}

type listOpenTimesArgs struct {
	Professional string `json:"professional"`
	Date         string `json:"date"`
}

type findPatientArgs struct {
	CPF string `json:"cpf"`
}

type createAppointmentArgs struct {
	Professional string `json:"professional"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

type cancelAppointmentArgs struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason,omitempty"`
}

type handoffToBookingArgs struct {
	Reason string `json:"reason,omitempty"`
}

// toolDefinitions returns the function schemas advertised to the model on
// every completion round.
func toolDefinitions() []openai.Tool {
	fn := func(name, description string, params map[string]any) openai.Tool {
		return openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: description,
				Parameters:  params,
			},
		}
	}
	str := func(description string) map[string]any {
		return map[string]any{"type": "string", "description": description}
	}

	return []openai.Tool{
		fn(toolListProfessionals, "List the clinic's active professionals, optionally filtered by specialty.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"specialty": str("Specialty to filter by (optional). Ex: 'Cardiologia'"),
				},
				"required": []string{},
			}),
		fn(toolListOpenDates, "List upcoming dates where a professional has at least one free slot, with the free-slot count per date.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"professional": str("Professional's name or part of it. Ex: 'Alcides'"),
				},
				"required": []string{"professional"},
			}),
		fn(toolListOpenTimes, "List the free appointment start times for a professional on a specific date.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"professional": str("Professional's name or part of it"),
					"date":         str("Date in YYYY-MM-DD format"),
				},
				"required": []string{"professional", "date"},
			}),
		fn(toolFindPatient, "Look the patient up by CPF so appointments can be booked or listed. Must succeed before any booking operation.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cpf": str("Patient's CPF, with or without punctuation"),
				},
				"required": []string{"cpf"},
			}),
		fn(toolCreateAppointment, "Book an appointment for the identified patient. Requires a prior successful find_patient call.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"professional": str("Professional's name or part of it"),
					"date":         str("Date in YYYY-MM-DD format"),
					"time":         str("Start time in HH:MM format, taken from list_open_times"),
				},
				"required": []string{"professional", "date", "time"},
			}),
		fn(toolListPatientAppointments, "List the identified patient's upcoming appointments.",
			map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			}),
		fn(toolCancelAppointment, "Cancel one of the identified patient's upcoming appointments.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"appointment_id": str("Appointment ID from list_patient_appointments"),
					"reason":         str("Cancellation reason given by the patient (optional)"),
				},
				"required": []string{"appointment_id"},
			}),
		fn(toolHandoffToBooking, "Transfer the conversation to the clinic's human booking staff. Call when the patient asks for a person or the assistant cannot complete the request.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": str("Short reason for the transfer (optional)"),
				},
				"required": []string{},
			}),
	}
}

// runTool decodes the raw arguments into the tool's typed struct and
// dispatches. Unknown tools and malformed argument payloads come back as
// failure envelopes so the model can recover in the next round; only
// infrastructure errors escape as Go errors.
func (a *Agent) runTool(ctx context.Context, sess *session, name string, raw json.RawMessage) (envelope, error) {
	decode := func(dst any) error {
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, dst)
	}

	switch name {
	case toolListProfessionals:
		var args listProfessionalsArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.listProfessionals(ctx, sess, args)
	case toolListOpenDates:
		var args listOpenDatesArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.listOpenDates(ctx, sess, args)
	case toolListOpenTimes:
		var args listOpenTimesArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.listOpenTimes(ctx, sess, args)
	case toolFindPatient:
		var args findPatientArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.findPatient(ctx, sess, args)
	case toolCreateAppointment:
		var args createAppointmentArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.createAppointment(ctx, sess, args)
	case toolListPatientAppointments:
		return a.listPatientAppointments(ctx, sess)
	case toolCancelAppointment:
		var args cancelAppointmentArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		return a.cancelAppointment(ctx, sess, args)
	case toolHandoffToBooking:
		var args handoffToBookingArgs
		if err := decode(&args); err != nil {
			return fail("invalid arguments for " + name), nil
		}
		sess.handoff = true
		return ok("conversation will be transferred to the booking team", envelope{
			"reason": args.Reason,
		}), nil
	default:
		return fail(fmt.Sprintf("unknown tool %q", name)), nil
	}
}

func (a *Agent) listProfessionals(ctx context.Context, sess *session, args listProfessionalsArgs) (envelope, error) {
	profs, err := a.booking.ListProfessionals(ctx, sess.clinicID, args.Specialty)
	if err != nil {
		return nil, err
	}
	if len(profs) == 0 {
		return fail("no professionals found for this clinic"), nil
	}

	list := make([]envelope, 0, len(profs))
	for _, p := range profs {
		list = append(list, envelope{
			"name":      p.Name,
			"specialty": p.Specialty,
		})
	}
	return ok(fmt.Sprintf("%d professionals available", len(list)), envelope{
		"professionals": list,
	}), nil
}

func (a *Agent) listOpenDates(ctx context.Context, sess *session, args listOpenDatesArgs) (envelope, error) {
	prof, dates, err := a.booking.OpenDates(ctx, sess.clinicID, args.Professional, sess.now)
	switch {
	case errors.Is(err, professionals.ErrNotFound):
		return fail(fmt.Sprintf("no professional matching %q; use list_professionals to see who is available", args.Professional)), nil
	case errors.Is(err, schedule.ErrNotConfigured):
		return fail(fmt.Sprintf("%s has no schedule configured; offer to transfer to the booking team", prof.Name)), nil
	case err != nil:
		return nil, err
	}
	if len(dates) == 0 {
		return fail(fmt.Sprintf("%s has no free dates in the next %d days", prof.Name, a.booking.Horizon())), nil
	}

	list := make([]envelope, 0, len(dates))
	for _, d := range dates {
		list = append(list, envelope{
			"date":       d.Date.Format(toolDateLayout),
			"weekday":    d.Date.Weekday().String(),
			"free_slots": d.FreeSlots,
		})
	}
	return ok(fmt.Sprintf("%s has openings on %d dates", prof.Name, len(list)), envelope{
		"professional": prof.Name,
		"dates":        list,
	}), nil
}

func (a *Agent) listOpenTimes(ctx context.Context, sess *session, args listOpenTimesArgs) (envelope, error) {
	date, err := time.ParseInLocation(toolDateLayout, args.Date, sess.now.Location())
	if err != nil {
		return fail(fmt.Sprintf("invalid date %q; expected YYYY-MM-DD", args.Date)), nil
	}

	prof, times, err := a.booking.OpenTimes(ctx, sess.clinicID, args.Professional, date, sess.now)
	switch {
	case errors.Is(err, professionals.ErrNotFound):
		return fail(fmt.Sprintf("no professional matching %q; use list_professionals to see who is available", args.Professional)), nil
	case errors.Is(err, schedule.ErrNotConfigured):
		return fail(fmt.Sprintf("%s has no schedule configured; offer to transfer to the booking team", prof.Name)), nil
	case errors.Is(err, schedule.ErrWeekdayClosed):
		return fail(fmt.Sprintf("%s does not work on %ss; suggest another date", prof.Name, date.Weekday())), nil
	case err != nil:
		return nil, err
	}
	if len(times) == 0 {
		return fail(fmt.Sprintf("%s is fully booked on %s; suggest another date", prof.Name, args.Date)), nil
	}

	list := make([]string, 0, len(times))
	for _, t := range times {
		list = append(list, t.String())
	}
	return ok(fmt.Sprintf("%s has %d free times on %s", prof.Name, len(list), args.Date), envelope{
		"professional": prof.Name,
		"date":         args.Date,
		"times":        list,
	}), nil
}

func (a *Agent) findPatient(ctx context.Context, sess *session, args findPatientArgs) (envelope, error) {
	if len(patients.NormalizeCPF(args.CPF)) != 11 {
		return fail("CPF must have 11 digits; ask the patient to repeat it"), nil
	}

	member, err := a.members.FindByCPF(ctx, sess.clinicID, args.CPF)
	switch {
	case errors.Is(err, patients.ErrNotFound):
		return fail("no patient with this CPF at the clinic; ask them to confirm the number or transfer to the booking team"), nil
	case err != nil:
		return nil, err
	}

	sess.member = member
	extra := envelope{"name": member.Name}
	if member.MembershipExpiresAt != nil {
		extra["membership_expires"] = member.MembershipExpiresAt.Format(toolDateLayout)
	}
	return ok(fmt.Sprintf("patient identified: %s", member.Name), extra), nil
}

func (a *Agent) createAppointment(ctx context.Context, sess *session, args createAppointmentArgs) (envelope, error) {
	if sess.member == nil {
		return fail("patient not identified yet; call find_patient with their CPF first"), nil
	}
	date, err := time.ParseInLocation(toolDateLayout, args.Date, sess.now.Location())
	if err != nil {
		return fail(fmt.Sprintf("invalid date %q; expected YYYY-MM-DD", args.Date)), nil
	}
	start, err := schedule.ParseTimeOfDay(args.Time)
	if err != nil {
		return fail(fmt.Sprintf("invalid time %q; expected HH:MM", args.Time)), nil
	}

	appt, err := a.booking.Book(ctx, sess.clinicID, sess.member.ID, args.Professional, date, start)
	switch {
	case errors.Is(err, professionals.ErrNotFound):
		return fail(fmt.Sprintf("no professional matching %q; use list_professionals to see who is available", args.Professional)), nil
	case errors.Is(err, appointments.ErrSlotTaken):
		return fail("that time was taken by someone else just now; fetch list_open_times again and offer another"), nil
	case errors.Is(err, appointments.ErrBookingLimitExceeded):
		return fail("the patient already used this month's booking allowance; offer to transfer to the booking team"), nil
	case errors.Is(err, appointments.ErrMembershipExpired):
		return fail("the patient's membership has expired; they need to renew before booking"), nil
	case err != nil:
		return nil, err
	}

	sess.action = "appointment_created"
	return ok("appointment booked", envelope{
		"appointment_id": appt.ID.String(),
		"professional":   appt.ProfessionalName,
		"date":           appt.Date.Format(toolDateLayout),
		"start":          appt.Start.String(),
		"end":            appt.End.String(),
	}), nil
}

func (a *Agent) listPatientAppointments(ctx context.Context, sess *session) (envelope, error) {
	if sess.member == nil {
		return fail("patient not identified yet; call find_patient with their CPF first"), nil
	}

	appts, err := a.booking.UpcomingForMember(ctx, sess.member.ID, sess.now)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return fail(fmt.Sprintf("%s has no upcoming appointments", sess.member.Name)), nil
	}

	list := make([]envelope, 0, len(appts))
	for _, appt := range appts {
		list = append(list, envelope{
			"appointment_id": appt.ID.String(),
			"professional":   appt.ProfessionalName,
			"date":           appt.Date.Format(toolDateLayout),
			"start":          appt.Start.String(),
		})
	}
	return ok(fmt.Sprintf("%s has %d upcoming appointments", sess.member.Name, len(list)), envelope{
		"appointments": list,
	}), nil
}

func (a *Agent) cancelAppointment(ctx context.Context, sess *session, args cancelAppointmentArgs) (envelope, error) {
	if sess.member == nil {
		return fail("patient not identified yet; call find_patient with their CPF first"), nil
	}
	id, err := uuid.Parse(args.AppointmentID)
	if err != nil {
		return fail(fmt.Sprintf("invalid appointment id %q; use the id from list_patient_appointments", args.AppointmentID)), nil
	}

	// Cancellation is scoped to the identified patient's own bookings.
	appts, err := a.booking.UpcomingForMember(ctx, sess.member.ID, sess.now)
	if err != nil {
		return nil, err
	}
	owned := false
	for _, appt := range appts {
		if appt.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		return fail("this appointment does not belong to the identified patient or was already cancelled"), nil
	}

	if err := a.booking.Cancel(ctx, id, args.Reason); err != nil {
		if errors.Is(err, appointments.ErrNotFound) {
			return fail("this appointment was already cancelled"), nil
		}
		return nil, err
	}

	sess.action = "appointment_cancelled"
	return ok("appointment cancelled", envelope{
		"appointment_id": id.String(),
	}), nil
}
