package authcore

import (
	"fmt"
	"unicode"
)

// PasswordPolicy is the pluggable strength policy. Zero values disable the
// corresponding check.
type PasswordPolicy struct {
	MinLength    int
	MinUppercase int
	MinDigits    int
	MinSymbols   int
}

// DefaultPasswordPolicy mirrors the product defaults: 8 chars, one
// uppercase, one digit, one symbol.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		MinUppercase: 1,
		MinDigits:    1,
		MinSymbols:   1,
	}
}

// Check is a pure function returning one human-readable description per
// violated rule. An empty slice means the password satisfies the policy.
func (p PasswordPolicy) Check(password string) []string {
	var uppercase, digits, symbols, length int
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			uppercase++
		case unicode.IsDigit(r):
			digits++
		case !unicode.IsLetter(r):
			symbols++
		}
	}

	var violations []string
	if p.MinLength > 0 && length < p.MinLength {
		violations = append(violations,
			fmt.Sprintf("Password should be at least %d characters long.", p.MinLength))
	}
	if p.MinUppercase > 0 && uppercase < p.MinUppercase {
		violations = append(violations,
			fmt.Sprintf("Password should have at least %d uppercase letters.", p.MinUppercase))
	}
	if p.MinDigits > 0 && digits < p.MinDigits {
		violations = append(violations,
			fmt.Sprintf("Password should have at least %d digits.", p.MinDigits))
	}
	if p.MinSymbols > 0 && symbols < p.MinSymbols {
		violations = append(violations,
			fmt.Sprintf("Password should have at least %d special characters.", p.MinSymbols))
	}

	return violations
}
