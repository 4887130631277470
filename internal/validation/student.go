// Package validation checks candidate student records before they are written.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var lettersPattern = regexp.MustCompile(`^[A-Za-z\s]+$`)

// StudentInput is a candidate record as received from a client.
type StudentInput struct {
	FirstName string `validate:"max=40,letters"`
	LastName  string `validate:"max=40,letters"`
	BirthDate string `validate:"calendardate,notfuture,mindate=1900-01-01"`
	Course    string `validate:"positiveint"`
	IsErasmus bool
}

var fieldLabels = map[string]string{
	"FirstName": "First name",
	"LastName":  "Last name",
	"BirthDate": "Birth date",
	"Course":    "Course",
}

// StudentValidator applies the field rules for student records.
type StudentValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewStudentValidator registers the student rules on v. A nil clock defaults to time.Now.
func NewStudentValidator(v *validator.Validate, now func() time.Time) *StudentValidator {
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if now == nil {
		now = time.Now
	}

	sv := &StudentValidator{validate: v, now: now}

	mustRegister(v, "letters", func(fl validator.FieldLevel) bool {
		return lettersPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "calendardate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "notfuture", func(fl validator.FieldLevel) bool {
		date, err := ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return !date.After(today(sv.now()))
	})
	mustRegister(v, "mindate", func(fl validator.FieldLevel) bool {
		date, err := ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		floor, err := time.Parse(dateLayout, fl.Param())
		if err != nil {
			return false
		}
		return !date.Before(floor)
	})
	mustRegister(v, "positiveint", func(fl validator.FieldLevel) bool {
		_, err := ParseCourse(fl.Field().String())
		return err == nil
	})

	return sv
}

// Validate returns one message per failing field, in field order. An empty slice means the record is valid.
func (sv *StudentValidator) Validate(input StudentInput) []string {
	err := sv.validate.Struct(input)
	if err == nil {
		return []string{}
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, message(fe))
	}
	return messages
}

func message(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.StructField()]
	if !ok {
		label = fe.StructField()
	}

	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s exceeds %s characters.", label, fe.Param())
	case "letters":
		return label + " must contain only letters."
	case "calendardate":
		return label + " must be a valid date."
	case "notfuture":
		return label + " cannot be in the future."
	case "mindate":
		return fmt.Sprintf("%s cannot be before %s.", label, fe.Param())
	case "positiveint":
		return label + " must be a positive number."
	default:
		return label + " is invalid."
	}
}

// ParseDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339 timestamp and returns midnight UTC of that date.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseCourse parses a strictly integral course number of at least 1.
func ParseCourse(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid course %q", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("course must be positive, got %d", n)
	}
	return n, nil
}

// FormatDate renders a stored birth date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}
