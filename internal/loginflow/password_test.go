package loginflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStockPolicy(t *testing.T) {
	settings := PasswordSettings{
		MinLength:           6,
		MaxLength:           20,
		UpperAndLowerAlphas: true,
		AlphasAndNumerics:   true,
		StartsWithAlpha:     false,
		RepetitionThreshold: 100,
	}

	tests := []struct {
		name     string
		value    string
		wantErr  bool
		contains string
	}{
		{name: "too short", value: "abc", wantErr: true, contains: "at least 6"},
		{name: "no lowercase or digit", value: "ABCDEFGH", wantErr: true, contains: "uppercase and lowercase"},
		{name: "accepted", value: "Abcdef1", wantErr: false},
		{name: "too long", value: strings.Repeat("Ab1", 10), wantErr: true, contains: "20 characters or fewer"},
		{name: "no digit", value: "Abcdefg", wantErr: true, contains: "one number"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.value, settings)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.contains)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidatePasswordRuleOrder(t *testing.T) {
	// Length violations win over any later rule.
	err := ValidatePassword("AB1", PasswordSettings{MinLength: 6, UpperAndLowerAlphas: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 6")
}

func TestValidatePasswordStartsWithAlpha(t *testing.T) {
	settings := PasswordSettings{StartsWithAlpha: true}

	require.Error(t, ValidatePassword("1abc", settings))
	require.NoError(t, ValidatePassword("abc1", settings))
}

func TestValidatePasswordRepetitionThreshold(t *testing.T) {
	settings := PasswordSettings{RepetitionThreshold: 2}

	require.NoError(t, ValidatePassword("aabb", settings))
	err := ValidatePassword("aaab", settings)
	require.Error(t, err)
	require.Contains(t, err.Error(), "more than 2")
}

func TestValidatePasswordAllRulesDisabled(t *testing.T) {
	require.NoError(t, ValidatePassword("", PasswordSettings{}))
	require.NoError(t, ValidatePassword("anything at all 123", PasswordSettings{}))
}

func TestDefaultPasswordSettings(t *testing.T) {
	s := DefaultPasswordSettings()

	require.Equal(t, 6, s.MinLength)
	require.Equal(t, 20, s.MaxLength)
	require.True(t, s.UpperAndLowerAlphas)
	require.True(t, s.AlphasAndNumerics)
	require.False(t, s.StartsWithAlpha)
	require.Equal(t, 100, s.RepetitionThreshold)
}
