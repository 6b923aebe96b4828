// Package validate is the shared input-validation collaborator for the
// public booking endpoints. Both the slot-query and booking-creation paths
// run their inputs through the same declarative rule set, so the two paths
// can never drift apart.
package validate

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Errors maps field names to a message. It is both the error type handlers
// return as a 400 body and a plain map for tests.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

var (
	dateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	// Appointment times sit on minute boundaries; a seconds field is only
	// accepted when it is exactly "00".
	timeRe      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:00)?$`)
	serviceIDRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	nameRe      = regexp.MustCompile(`^[\p{L}][\p{L} .,'-]{1,99}$`)
	phoneDigits = regexp.MustCompile(`^\+?\d{7,15}$`)
	phoneStrip  = regexp.MustCompile(`[\s().-]`)

	// Control characters and markup fragments rejected everywhere as a
	// defense-in-depth layer. Stored fields are still escaped on output.
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	markupRe  = regexp.MustCompile(`(?i)(<\s*/?\s*[a-z!]|javascript\s*:|on[a-z]+\s*=|&#)`)
)

var email = validator.New()

const maxNotesLen = 500

// rule is one declarative field constraint.
type rule struct {
	field    string
	required bool
	pattern  *regexp.Regexp
	message  string
	maxLen   int
}

func (r rule) apply(value string, errs Errors) {
	if value == "" {
		if r.required {
			errs[r.field] = r.field + " is required"
		}
		return
	}
	if controlRe.MatchString(value) || markupRe.MatchString(value) {
		errs[r.field] = r.field + " contains disallowed characters"
		return
	}
	if r.maxLen > 0 && utf8.RuneCountInString(value) > r.maxLen {
		errs[r.field] = r.message
		return
	}
	if r.pattern != nil && !r.pattern.MatchString(value) {
		errs[r.field] = r.message
	}
}

var (
	dateRule      = rule{field: "date", required: true, pattern: dateRe, message: "date must be YYYY-MM-DD"}
	serviceIDRule = rule{field: "service", required: true, pattern: serviceIDRe, message: "service id must be 3-50 alphanumeric or underscore characters"}
	timeRule      = rule{field: "time", required: true, pattern: timeRe, message: "time must be HH:MM or HH:MM:00"}
	nameRule      = rule{field: "name", required: true, pattern: nameRe, message: "name must be 2-100 letters, spaces, or basic punctuation"}
	notesRule     = rule{field: "notes", required: false, maxLen: maxNotesLen, message: "notes must be at most 500 characters"}
)

// SlotQuery validates the available-slots query parameters. Calendar
// plausibility (real date, booking window) is checked by the caller after
// the shape passes.
func SlotQuery(date, serviceID string) Errors {
	errs := Errors{}
	dateRule.apply(date, errs)
	serviceIDRule.apply(serviceID, errs)
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// BookingRequest is the raw POST /booking/create body.
type BookingRequest struct {
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

// Booking validates a booking request and returns a normalized copy: fields
// trimmed, HH:MM expanded to HH:MM:SS, phone formatting stripped.
func Booking(req BookingRequest) (BookingRequest, Errors) {
	errs := Errors{}

	req.Service = strings.TrimSpace(req.Service)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Notes = strings.TrimSpace(req.Notes)

	serviceIDRule.apply(req.Service, errs)
	dateRule.apply(req.Date, errs)
	timeRule.apply(req.Time, errs)
	nameRule.apply(req.Name, errs)
	notesRule.apply(req.Notes, errs)

	if req.Email == "" {
		errs["email"] = "email is required"
	} else if controlRe.MatchString(req.Email) || markupRe.MatchString(req.Email) {
		errs["email"] = "email contains disallowed characters"
	} else if err := email.Var(req.Email, "email"); err != nil {
		errs["email"] = "email must be a valid address"
	}

	if req.Phone == "" {
		errs["phone"] = "phone is required"
	} else {
		stripped := phoneStrip.ReplaceAllString(req.Phone, "")
		if !phoneDigits.MatchString(stripped) {
			errs["phone"] = "phone must be 7-15 digits"
		} else {
			req.Phone = stripped
		}
	}

	if _, ok := errs["time"]; !ok && req.Time != "" {
		if len(req.Time) == 5 {
			req.Time += ":00"
		}
	}

	if len(errs) == 0 {
		return req, nil
	}
	return req, errs
}
