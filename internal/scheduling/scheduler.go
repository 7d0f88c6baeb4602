package scheduling

import (
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
)

// FieldError is one validation failure attached to a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors keeps failures in the order they were found.
type FieldErrors []FieldError

func (e *FieldErrors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

func (e FieldErrors) Empty() bool { return len(e) == 0 }

// On returns the messages recorded for field.
func (e FieldErrors) On(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Checks carries what Validate cannot see on the activity itself.
type Checks struct {
	// AssignableIDs is the project's assignable set. Nil skips the check.
	AssignableIDs map[uint]struct{}
	// DurationProblem is the message from an unparseable duration input.
	DurationProblem string
}

// ApplyDefaults fills dates on a record that has not been saved yet.
func ApplyDefaults(a *models.Activity, clock Clock) {
	if a.ID != 0 {
		return
	}
	today := Today(clock)
	if a.StartOn == nil {
		a.StartOn = datePtr(today)
	}
	if a.DueOn == nil {
		a.DueOn = datePtr(AddDays(today, 1))
	}
}

// DueDateFor is the inclusive end of a span of days starting on start.
func DueDateFor(start time.Time, days int) time.Time {
	return AddDays(start, days-1)
}

// DeriveDueDate overwrites due_on from start_on and duration_days when both
// are present and the duration is within MaxDurationDays.
func DeriveDueDate(a *models.Activity) {
	if a.DurationDays == nil || a.StartOn == nil || *a.DurationDays > MaxDurationDays {
		return
	}
	a.DueOn = datePtr(DueDateFor(*a.StartOn, *a.DurationDays))
}

// Validate checks a derived activity and returns every failure found.
func Validate(a *models.Activity, checks Checks) FieldErrors {
	var errs FieldErrors

	if strings.TrimSpace(a.Title) == "" {
		errs.Add("title", MsgBlank)
	}
	if a.StartOn == nil {
		errs.Add("start_on", MsgBlank)
	} else if !InHorizon(*a.StartOn) {
		errs.Add("start_on", MsgOutOfRange)
	}

	switch {
	case checks.DurationProblem != "":
		errs.Add("duration_days", checks.DurationProblem)
	case a.DurationDays != nil && *a.DurationDays <= 0:
		errs.Add("duration_days", MsgNotPositive)
	case a.DurationDays != nil && *a.DurationDays > MaxDurationDays:
		errs.Add("duration_days", MsgTooLong)
	}

	if a.DueOn == nil {
		errs.Add("due_on", MsgBlank)
	} else if !InHorizon(*a.DueOn) {
		errs.Add("due_on", MsgOutOfRange)
	} else if a.StartOn != nil && DateOf(*a.DueOn).Before(DateOf(*a.StartOn)) {
		errs.Add("due_on", MsgDueBeforeStart)
	}

	if a.AssigneeID != nil && checks.AssignableIDs != nil {
		if _, ok := checks.AssignableIDs[*a.AssigneeID]; !ok {
			errs.Add("assignee", MsgNotAssignable)
		}
	}

	return errs
}

// Prepare runs derivation then validation, the sequence every save goes
// through.
func Prepare(a *models.Activity, checks Checks) FieldErrors {
	DeriveDueDate(a)
	return Validate(a, checks)
}

// Reschedule moves an activity to start on newStart. With a duration the due
// date is derived; otherwise the existing span is kept.
func Reschedule(a *models.Activity, newStart time.Time) {
	start := DateOf(newStart)
	if a.DurationDays != nil {
		a.StartOn = &start
		DeriveDueDate(a)
		return
	}

	span := 0
	if a.StartOn != nil && a.DueOn != nil {
		span = DaysBetween(*a.StartOn, *a.DueOn)
	}
	if span < 0 {
		span = 0
	}
	a.StartOn = &start
	a.DueOn = datePtr(AddDays(start, span))
}
