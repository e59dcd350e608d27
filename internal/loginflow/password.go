package loginflow

import (
	"fmt"
	"unicode"
)

// PasswordSettings mirrors the server's password policy. Every rule is
// independently toggleable; zero-valued limits disable their rule.
type PasswordSettings struct {
	MinLength           int  `json:"minLength" yaml:"min_length"`
	MaxLength           int  `json:"maxLength" yaml:"max_length"`
	UpperAndLowerAlphas bool `json:"upperAndLowerAlphasEnabled" yaml:"upper_and_lower_alphas"`
	AlphasAndNumerics   bool `json:"alphasAndNumericsEnabled" yaml:"alphas_and_numerics"`
	StartsWithAlpha     bool `json:"startsWithAlphaEnabled" yaml:"starts_with_alpha"`
	RepetitionThreshold int  `json:"repetitionThreshold" yaml:"repetition_threshold"`
}

// DefaultPasswordSettings returns the stock policy used when the server
// supplies none.
func DefaultPasswordSettings() PasswordSettings {
	return PasswordSettings{
		MinLength:           6,
		MaxLength:           20,
		UpperAndLowerAlphas: true,
		AlphasAndNumerics:   true,
		StartsWithAlpha:     false,
		RepetitionThreshold: 100,
	}
}

// ValidatePassword checks value against the settings. Rules run in a fixed
// order, cheapest first, and short-circuit at the first violation; the
// returned error carries the user-facing message.
func ValidatePassword(value string, s PasswordSettings) error {
	runes := []rune(value)

	if s.MinLength > 0 && len(runes) < s.MinLength {
		return fmt.Errorf("must be at least %d characters", s.MinLength)
	}
	if s.MaxLength > 0 && len(runes) > s.MaxLength {
		return fmt.Errorf("must be %d characters or fewer", s.MaxLength)
	}

	if s.UpperAndLowerAlphas {
		var hasLower, hasUpper bool
		for _, r := range runes {
			hasLower = hasLower || unicode.IsLower(r)
			hasUpper = hasUpper || unicode.IsUpper(r)
		}
		if !hasLower || !hasUpper {
			return fmt.Errorf("must contain both uppercase and lowercase characters")
		}
	}

	if s.AlphasAndNumerics {
		var hasDigit, hasAlpha bool
		for _, r := range runes {
			hasDigit = hasDigit || unicode.IsDigit(r)
			hasAlpha = hasAlpha || unicode.IsLetter(r)
		}
		if !hasDigit {
			return fmt.Errorf("must contain at least one number")
		}
		if !hasAlpha {
			return fmt.Errorf("must contain at least one alphabetic character")
		}
	}

	if s.StartsWithAlpha {
		if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
			return fmt.Errorf("must start with an alphabetic character")
		}
	}

	if s.RepetitionThreshold > 0 {
		counts := make(map[rune]int)
		for _, r := range runes {
			counts[r]++
			if counts[r] > s.RepetitionThreshold {
				return fmt.Errorf("must not contain the same character more than %d time(s)", s.RepetitionThreshold)
			}
		}
	}

	return nil
}
