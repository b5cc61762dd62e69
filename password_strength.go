package portal

import "unicode/utf8"

// StrengthLevel grades a password. The zero value means no grade.
type StrengthLevel string

const (
	StrengthNone   StrengthLevel = ""
	StrengthWeak   StrengthLevel = "weak"
	StrengthMedium StrengthLevel = "medium"
	StrengthStrong StrengthLevel = "strong"
)

// Label is the display text of the level.
func (l StrengthLevel) Label() string {
	switch l {
	case StrengthWeak:
		return "Weak"
	case StrengthMedium:
		return "Medium"
	case StrengthStrong:
		return "Strong"
	default:
		return ""
	}
}

// StrengthCheck is one requirement of the meter.
type StrengthCheck struct {
	Label  string
	Passed bool
}

// Strength is the outcome of PasswordStrength.
type Strength struct {
	Level  StrengthLevel
	Passed int
	Checks []StrengthCheck
}

// PasswordStrength grades pw against the four password requirements: two or
// fewer passed is weak, three medium, four strong. Empty input has no
// grade and no checks.
func PasswordStrength(pw string) Strength {
	if pw == "" {
		return Strength{}
	}

	checks := []StrengthCheck{
		{Label: "At least 8 characters", Passed: utf8.RuneCountInString(pw) >= passwordMinLength},
		{Label: "Contains a letter", Passed: hasLetter.MatchString(pw)},
		{Label: "Contains a number", Passed: hasDigit.MatchString(pw)},
		{Label: "Contains a special character", Passed: hasSpecial.MatchString(pw)},
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}

	s := Strength{Passed: passed, Checks: checks}
	switch {
	case passed == 0:
		s.Level = StrengthNone
	case passed <= 2:
		s.Level = StrengthWeak
	case passed == 3:
		s.Level = StrengthMedium
	default:
		s.Level = StrengthStrong
	}
	return s
}
