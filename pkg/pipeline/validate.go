package pipeline

import "regexp"

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	capitalPattern = regexp.MustCompile(`[A-Z]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidateEmail reports whether the input looks like an email address.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// StringValidationOptions constrains a string field. Zero values impose no
// constraint; MaxLength of 0 means unbounded.
type StringValidationOptions struct {
	MinLength       int
	MaxLength       int
	RequireCapitals bool
	RequireSpecials bool
	Pattern         *regexp.Regexp
}

// ValidateString reports whether the input satisfies every constraint in
// opts.
func ValidateString(input string, opts StringValidationOptions) bool {
	if len(input) < opts.MinLength {
		return false
	}
	if opts.MaxLength > 0 && len(input) > opts.MaxLength {
		return false
	}
	if opts.RequireCapitals && !capitalPattern.MatchString(input) {
		return false
	}
	if opts.RequireSpecials && !specialPattern.MatchString(input) {
		return false
	}
	if opts.Pattern != nil && !opts.Pattern.MatchString(input) {
		return false
	}
	return true
}
