package authcore_test

import (
	"testing"

	authcore "github.com/ravenmill/go-authcore"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicyCheck(t *testing.T) {
	policy := authcore.DefaultPasswordPolicy()

	tests := []struct {
		name       string
		password   string
		violations int
	}{
		{
			name:       "Strong password",
			password:   "Str0ng!pass",
			violations: 0,
		},
		{
			name:       "Too short",
			password:   "Ab1!",
			violations: 1,
		},
		{
			name:       "Missing uppercase",
			password:   "weakpass1!",
			violations: 1,
		},
		{
			name:       "Missing digit",
			password:   "Weakpass!!",
			violations: 1,
		},
		{
			name:       "Missing symbol",
			password:   "Weakpass11",
			violations: 1,
		},
		{
			name:       "Empty fails every rule",
			password:   "",
			violations: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Check(tt.password)
			assert.Len(t, got, tt.violations)
		})
	}
}

func TestPasswordPolicyZeroValuesDisableChecks(t *testing.T) {
	policy := authcore.PasswordPolicy{MinLength: 4}

	assert.Empty(t, policy.Check("abcd"))
	assert.Len(t, policy.Check("abc"), 1)
}

func TestPasswordPolicyIsPure(t *testing.T) {
	policy := authcore.DefaultPasswordPolicy()

	first := policy.Check("weak")
	second := policy.Check("weak")
	assert.Equal(t, first, second)
}
