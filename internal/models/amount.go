package models

import (
	"fmt"
	"math/big"
	"strings"
)

// AmountDecimals is the fixed precision for all payment amounts.
// Amounts travel as decimal strings and are converted to big.Int base
// units at comparison points. Binary floating point would drift on
// 8-decimal expectations, so it is never used.
const AmountDecimals = 8

var amountScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)

// ParseAmount converts a decimal string (e.g. "5.00000001") to base units.
// Fractional digits beyond AmountDecimals are truncated.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}

	if len(frac) > AmountDecimals {
		frac = frac[:AmountDecimals]
	}
	for len(frac) < AmountDecimals {
		frac += "0"
	}

	units, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}
	if neg || units.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", s)
	}
	return units, nil
}

// FormatAmount renders base units back to a decimal string with full
// AmountDecimals precision, e.g. 500000000 -> "5.00000000".
func FormatAmount(units *big.Int) string {
	q, r := new(big.Int).QuoRem(units, amountScale, new(big.Int))
	return fmt.Sprintf("%s.%0*d", q.String(), AmountDecimals, r)
}

// AddAmounts returns a+b as a decimal string, exact.
func AddAmounts(a, b string) (string, error) {
	ua, err := ParseAmount(a)
	if err != nil {
		return "", err
	}
	ub, err := ParseAmount(b)
	if err != nil {
		return "", err
	}
	return FormatAmount(new(big.Int).Add(ua, ub)), nil
}

// CmpAmounts compares two decimal amounts exactly: -1 if a<b, 0 if equal,
// +1 if a>b.
func CmpAmounts(a, b string) (int, error) {
	ua, err := ParseAmount(a)
	if err != nil {
		return 0, err
	}
	ub, err := ParseAmount(b)
	if err != nil {
		return 0, err
	}
	return ua.Cmp(ub), nil
}
