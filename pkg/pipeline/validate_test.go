package pipeline

import (
	"regexp"
	"testing"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.domain.org",
		"a_b%c@host.io",
	}
	invalid := []string{
		"",
		"plain",
		"user@",
		"@example.com",
		"user@host",
		"user @example.com",
	}

	for _, email := range valid {
		if !ValidateEmail(email) {
			t.Errorf("expected %q to be valid", email)
		}
	}
	for _, email := range invalid {
		if ValidateEmail(email) {
			t.Errorf("expected %q to be invalid", email)
		}
	}
}

func TestValidateString(t *testing.T) {
	cases := []struct {
		name  string
		input string
		opts  StringValidationOptions
		want  bool
	}{
		{"no constraints", "anything", StringValidationOptions{}, true},
		{"too short", "ab", StringValidationOptions{MinLength: 3}, false},
		{"too long", "abcdef", StringValidationOptions{MaxLength: 5}, false},
		{"within bounds", "abcd", StringValidationOptions{MinLength: 3, MaxLength: 5}, true},
		{"needs capital", "abc", StringValidationOptions{RequireCapitals: true}, false},
		{"has capital", "aBc", StringValidationOptions{RequireCapitals: true}, true},
		{"needs special", "abc", StringValidationOptions{RequireSpecials: true}, false},
		{"has special", "a!c", StringValidationOptions{RequireSpecials: true}, true},
		{"pattern mismatch", "abc", StringValidationOptions{Pattern: regexp.MustCompile(`^\d+$`)}, false},
		{"pattern match", "123", StringValidationOptions{Pattern: regexp.MustCompile(`^\d+$`)}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateString(tc.input, tc.opts); got != tc.want {
				t.Errorf("ValidateString(%q, %+v): expected %v, got %v", tc.input, tc.opts, tc.want, got)
			}
		})
	}
}
