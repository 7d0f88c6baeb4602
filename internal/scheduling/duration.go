package scheduling

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Duration messages.
const (
	MsgNotANumber     = "is not a number"
	MsgNotAnInteger   = "must be an integer"
	MsgNotPositive    = "must be greater than 0"
	MsgBlank          = "can't be blank"
	MsgDueBeforeStart = "cannot be before the start date"
	MsgNotAssignable  = "must belong to the project"
	MsgTooLong        = "is too long (maximum is 3650 days)"
	MsgOutOfRange     = "must be between 1900 and 2200"
)

// Scheduling horizon. Durations and dates outside it are rejected.
const (
	MaxDurationDays = 3650
	MinYear         = 1900
	MaxYear         = 2200
)

// InHorizon reports whether t falls in a year the scheduler accepts.
func InHorizon(t time.Time) bool {
	return t.Year() >= MinYear && t.Year() <= MaxYear
}

// DurationInput is a duration_days value as submitted. JSON numbers and
// strings are both accepted; the value is only interpreted by Days.
type DurationInput struct {
	raw string
}

func ParseDurationInput(s string) DurationInput {
	return DurationInput{raw: strings.TrimSpace(s)}
}

// DurationOf wraps a known day count.
func DurationOf(days int) DurationInput {
	return DurationInput{raw: strconv.Itoa(days)}
}

func (d *DurationInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		d.raw = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d.raw = strings.TrimSpace(s)
		return nil
	}
	d.raw = string(b)
	return nil
}

func (d DurationInput) MarshalJSON() ([]byte, error) {
	days, problem := d.Days()
	if problem != "" || days == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*days)), nil
}

// Blank reports an empty submission, which clears the duration.
func (d DurationInput) Blank() bool {
	return d.raw == ""
}

func (d DurationInput) String() string {
	return d.raw
}

// Days interprets the input. A blank input returns nil with no problem; an
// unusable one returns nil and the field message. Sign is not checked here.
func (d DurationInput) Days() (*int, string) {
	if d.raw == "" {
		return nil, ""
	}
	if n, err := strconv.Atoi(d.raw); err == nil {
		return &n, ""
	}
	f, err := strconv.ParseFloat(d.raw, 64)
	if err != nil {
		return nil, MsgNotANumber
	}
	if f == float64(int(f)) {
		n := int(f)
		return &n, ""
	}
	return nil, MsgNotAnInteger
}
