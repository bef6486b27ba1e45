package chain

import (
	"math/big"
	"strings"

	walleterr "github.com/tidewallet/tide/pkg/errors"
)

// ParseDecimalAmount converts a decimal amount string to an integer
// minor-unit value with the given decimal places, using big.Int arithmetic
// only. "1.5" with 18 decimals yields 1500000000000000000.
//
// Floating-point multiplication is deliberately never used here: the
// original implementation this replaces scaled amounts through float64 and
// truncated, which corrupts deep-decimal amounts.
func ParseDecimalAmount(amount string, decimalPlaces int) (*big.Int, error) {
	if amount == "" || strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmount(amount)
	}

	intPart, decPart, err := splitDecimal(amount)
	if err != nil {
		return nil, err
	}

	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmount(amount)
	}

	// Scale integer part by 10^decimals.
	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart != "" {
		// More fractional digits than the token carries cannot be
		// represented exactly; reject rather than silently truncate.
		if len(decPart) > decimalPlaces {
			return nil, invalidAmount(amount)
		}
		for len(decPart) < decimalPlaces {
			decPart += "0"
		}

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, invalidAmount(amount)
		}
		result.Add(result, decVal)
	}

	return result, nil
}

// ParsePositiveAmount is ParseDecimalAmount restricted to strictly
// positive values, for transfer amounts.
func ParsePositiveAmount(amount string, decimalPlaces int) (*big.Int, error) {
	v, err := ParseDecimalAmount(amount, decimalPlaces)
	if err != nil {
		return nil, err
	}
	if v.Sign() <= 0 {
		return nil, invalidAmount(amount)
	}
	return v, nil
}

// FormatDecimalAmount converts an integer minor-unit value back to a
// decimal string, trimming trailing zeros. 1500000000000000000 with 18
// decimals yields "1.5"; zero yields "0".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if amount.Sign() < 0 {
		abs := new(big.Int).Abs(amount)
		return "-" + FormatDecimalAmount(abs, decimalPlaces)
	}

	str := amount.String()
	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	pos := len(str) - decimalPlaces
	whole, frac := str[:pos], str[pos:]

	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// splitDecimal splits "12.34" into ("12", "34"), validating digits.
func splitDecimal(amount string) (intPart, decPart string, err error) {
	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return "", "", invalidAmount(amount)
	}

	intPart = parts[0]
	if intPart == "" {
		intPart = "0"
	}
	if len(parts) == 2 {
		decPart = parts[1]
	}

	for _, p := range []string{intPart, decPart} {
		for _, c := range p {
			if c < '0' || c > '9' {
				return "", "", invalidAmount(amount)
			}
		}
	}

	return intPart, decPart, nil
}

func invalidAmount(amount string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{
		"amount": amount,
	})
}
