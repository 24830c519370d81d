// Package domain contains the core business entities for the time bucket planner.
// These are plain Go structs plus the stateless validators that guard them.
// Nothing in this package performs I/O; callers pass in every peer entity and
// the current date explicitly.
package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	_ "time/tzdata"

	"github.com/google/uuid"
)

// Age bounds of a planned life. Buckets and birthdates are constrained to them.
const (
	MinAge = 20
	MaxAge = 100
)

// DefaultTimezone is assigned to users who have not chosen one.
const DefaultTimezone = "Asia/Tokyo"

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// User represents a registered user in the system.
// Users own time buckets and exactly one notification preference.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `json:"id"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// Provider is the identity provider that authenticated the user (e.g. "google").
	// Empty for users provisioned by an operator.
	Provider string `json:"provider,omitempty"`

	// UID is the user's subject identifier at Provider.
	UID string `json:"-"`

	// Birthdate is the user's date of birth at midnight UTC.
	// Nil until the user completes onboarding.
	Birthdate *time.Time `json:"birthdate"`

	// Timezone is the IANA zone used to decide what "today" is for the user.
	Timezone string `json:"timezone"`

	// ValuesTags holds free-form value keywords chosen by the user.
	ValuesTags map[string]any `json:"values_tags"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new User with default values.
func NewUser(email string, now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:         uuid.New(),
		Email:      strings.TrimSpace(email),
		Timezone:   DefaultTimezone,
		ValuesTags: map[string]any{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasBirthdate reports whether the birthdate is known.
func (u *User) HasBirthdate() bool {
	return u != nil && u.Birthdate != nil
}

// BirthYear returns the calendar year of birth.
func (u *User) BirthYear() (int, bool) {
	if !u.HasBirthdate() {
		return 0, false
	}
	return u.Birthdate.Year(), true
}

// AgeOn returns the user's age in whole years on the given day.
// Someone born on Feb 29 turns a year older on Feb 28 in common years.
func (u *User) AgeOn(today time.Time) (int, bool) {
	if !u.HasBirthdate() {
		return 0, false
	}
	b := *u.Birthdate
	age := today.Year() - b.Year()
	if dateOnly(today).Before(Anniversary(b, today.Year())) {
		age--
	}
	return age, true
}

// Location resolves the user's timezone, falling back to UTC when it is unknown.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the user's local calendar date for the instant now,
// expressed as midnight UTC so it compares cleanly with Birthdate.
func (u *User) Today(now time.Time) time.Time {
	local := now.In(u.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Anniversary returns the birthday of birthdate in the given year.
// Feb 29 maps to Feb 28 when year is not a leap year.
func Anniversary(birthdate time.Time, year int) time.Time {
	day := birthdate.Day()
	if birthdate.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return time.Date(year, birthdate.Month(), day, 0, 0, 0, 0, time.UTC)
}

// BirthdateBounds returns the inclusive range of acceptable birthdates on the given day:
// Jan 1 of (year - MaxAge) through Dec 31 of (year - MinAge).
func BirthdateBounds(today time.Time) (time.Time, time.Time) {
	year := today.Year()
	min := time.Date(year-MaxAge, time.January, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(year-MinAge, time.December, 31, 0, 0, 0, 0, time.UTC)
	return min, max
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ValidateUser checks a user's fields as of the given day.
// A missing birthdate is allowed here; operations that need it report
// ErrBirthdateRequired themselves.
func ValidateUser(u *User, today time.Time) *ValidationError {
	v := &ValidationError{}

	email := strings.TrimSpace(u.Email)
	if email == "" {
		v.Add("email", "can't be blank")
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		v.Add("email", "is invalid")
	}

	if u.Birthdate != nil {
		min, max := BirthdateBounds(today)
		b := dateOnly(*u.Birthdate)
		if b.Before(min) || b.After(max) {
			v.Add("birthdate", fmt.Sprintf("must be between %s and %s", min.Format(DateLayout), max.Format(DateLayout)))
		}
	}

	if strings.TrimSpace(u.Timezone) == "" {
		v.Add("timezone", "can't be blank")
	} else if _, err := time.LoadLocation(u.Timezone); err != nil {
		v.Add("timezone", "is not a valid time zone")
	}

	if u.UID != "" && u.Provider == "" {
		v.Add("provider", "can't be blank")
	}
	if u.Provider != "" && u.UID == "" {
		v.Add("uid", "can't be blank")
	}

	return v
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
