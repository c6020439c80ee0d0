package validators

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultSources is the closed set of "how did you hear about us" answers
var DefaultSources = []string{"email", "friend", "other"}

const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldLocation  = "location"
	FieldSource    = "source"
)

// FieldErrors maps a request field to a human readable message
type FieldErrors map[string]string

// WaitlistInput is the raw submission as it arrived from the form
type WaitlistInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Location  string
	Source    string
}

// Waitlist is a submission that passed validation. Names are whitespace
// collapsed, the email is lower-cased and the phone is trimmed but not yet
// normalized.
type Waitlist struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Location  string
	Source    string
}

// FieldRule describes the constraints of a single field
type FieldRule struct {
	Field    string
	Required bool
	MaxLen   int
	Email    bool
	OneOf    []string

	RequiredMsg string
	MaxLenMsg   string
	InvalidMsg  string
}

// WaitlistRules returns the rules for a waitlist submission. The source
// enumeration depends on the deployment.
func WaitlistRules(sources []string) []FieldRule {
	if len(sources) == 0 {
		sources = DefaultSources
	}

	return []FieldRule{
		{
			Field:       FieldFirstName,
			Required:    true,
			MaxLen:      100,
			RequiredMsg: "First name is required",
			MaxLenMsg:   "First name must be 100 characters or less",
		},
		{
			Field:     FieldLastName,
			MaxLen:    100,
			MaxLenMsg: "Last name must be 100 characters or less",
		},
		{
			Field:       FieldEmail,
			Required:    true,
			MaxLen:      254,
			Email:       true,
			RequiredMsg: "Invalid email address",
			MaxLenMsg:   "Email must be 254 characters or less",
			InvalidMsg:  "Invalid email address",
		},
		{
			Field:     FieldPhone,
			MaxLen:    32,
			MaxLenMsg: "Phone number must be 32 characters or less",
		},
		{
			Field:     FieldLocation,
			MaxLen:    100,
			MaxLenMsg: "Location must be 100 characters or less",
		},
		{
			Field:       FieldSource,
			Required:    true,
			OneOf:       sources,
			RequiredMsg: "Please let us know how you heard about us",
			InvalidMsg:  "Please let us know how you heard about us",
		},
	}
}

// CollapseSpaces trims s and replaces every internal whitespace run with a
// single space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeWaitlist applies the field transforms without checking anything
func NormalizeWaitlist(in WaitlistInput) Waitlist {
	return Waitlist{
		FirstName: CollapseSpaces(in.FirstName),
		LastName:  CollapseSpaces(in.LastName),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Location:  CollapseSpaces(in.Location),
		Source:    strings.TrimSpace(in.Source),
	}
}

// ValidateWaitlist normalizes the input and checks it against the rules.
// On failure the returned FieldErrors is non-empty and the Waitlist must
// not be used.
func ValidateWaitlist(in WaitlistInput, sources []string) (Waitlist, FieldErrors) {
	w := NormalizeWaitlist(in)

	values := map[string]string{
		FieldFirstName: w.FirstName,
		FieldLastName:  w.LastName,
		FieldEmail:     w.Email,
		FieldPhone:     w.Phone,
		FieldLocation:  w.Location,
		FieldSource:    w.Source,
	}

	errs := FieldErrors{}
	for _, rule := range WaitlistRules(sources) {
		if msg, ok := rule.check(values[rule.Field]); !ok {
			errs[rule.Field] = msg
		}
	}

	if len(errs) > 0 {
		return Waitlist{}, errs
	}

	return w, nil
}

func (r FieldRule) check(v string) (string, bool) {
	if v == "" {
		if r.Required {
			return r.RequiredMsg, false
		}

		return "", true
	}

	if r.MaxLen > 0 && utf8.RuneCountInString(v) > r.MaxLen {
		return r.MaxLenMsg, false
	}

	if r.Email && EmailValidator(v) != nil {
		return r.InvalidMsg, false
	}

	if len(r.OneOf) > 0 && !slices.Contains(r.OneOf, v) {
		return r.InvalidMsg, false
	}

	return "", true
}
